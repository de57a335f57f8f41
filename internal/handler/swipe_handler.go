package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/swipe"
)

// SwipeServiceInterface はスワイプハンドラーが必要とするサービスインターフェース。
type SwipeServiceInterface interface {
	RecordSwipe(ctx context.Context, userID, workspaceID, fundraiseID string, mode model.Mode, decision model.Decision) (*swipe.Result, error)
}

// ReflectionServiceInterface はリフレクション保存のサービスインターフェース。
type ReflectionServiceInterface interface {
	Save(ctx context.Context, userID, swipeID string, chips []string, note string) (*model.Reflection, error)
}

// SwipeHandler はスワイプとリフレクションのHTTPハンドラー。
type SwipeHandler struct {
	swipes      SwipeServiceInterface
	reflections ReflectionServiceInterface
}

// NewSwipeHandler はSwipeHandlerを生成する。
func NewSwipeHandler(swipes SwipeServiceInterface, reflections ReflectionServiceInterface) *SwipeHandler {
	return &SwipeHandler{
		swipes:      swipes,
		reflections: reflections,
	}
}

type recordSwipeRequest struct {
	FundraiseID string `json:"fundraiseId"`
	Decision    string `json:"decision"`
}

type swipeResponse struct {
	ID           string  `json:"id"`
	Decision     string  `json:"decision"`
	CreatedAt    string  `json:"createdAt"`
	MatchCreated bool    `json:"matchCreated"`
	Matched      bool    `json:"matched"`
	MatchID      *string `json:"matchId"`
}

type saveReflectionRequest struct {
	SwipeID string   `json:"swipeId"`
	Chips   []string `json:"chips"`
	Note    string   `json:"note"`
}

type reflectionResponse struct {
	ID        string   `json:"id"`
	SwipeID   string   `json:"swipeId"`
	Chips     []string `json:"chips"`
	Note      *string  `json:"note"`
	CreatedAt string   `json:"createdAt"`
}

// RecordSwipe はスワイプを記録し、マッチ判定の結果を返す。
// POST /api/swipes/{mode}
func (h *SwipeHandler) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requireMember(w, r)
	if !ok {
		return
	}
	mode, err := model.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req recordSwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FundraiseID == "" {
		handleServiceError(w, model.NewInvalidRequestError("fundraiseIdは必須です"))
		return
	}
	decision, err := model.ParseDecision(req.Decision)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.swipes.RecordSwipe(r.Context(), userID, workspaceID, req.FundraiseID, mode, decision)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := swipeResponse{
		ID:           result.SwipeID,
		Decision:     string(result.Decision),
		CreatedAt:    formatTime(result.CreatedAt),
		MatchCreated: result.MatchCreated,
		Matched:      result.Matched,
	}
	if result.MatchID != "" {
		resp.MatchID = &result.MatchID
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveReflection はいいねしたスワイプにタグとメモを保存する。
// POST /api/reflections
func (h *SwipeHandler) SaveReflection(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req saveReflectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reflection, err := h.reflections.Save(r.Context(), userID, req.SwipeID, req.Chips, req.Note)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	chips := reflection.Chips
	if chips == nil {
		chips = []string{}
	}
	writeJSON(w, http.StatusOK, reflectionResponse{
		ID:        reflection.ID,
		SwipeID:   reflection.SwipeID,
		Chips:     chips,
		Note:      reflection.Note,
		CreatedAt: formatTime(reflection.CreatedAt),
	})
}

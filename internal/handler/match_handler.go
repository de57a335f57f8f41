package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundswap/internal/match"
)

// 調達がデータセットに見つからない場合の表示名
const unknownCompanyName = "Unknown Company"

// MatchServiceInterface はマッチハンドラーが必要とするサービスインターフェース。
type MatchServiceInterface interface {
	List(ctx context.Context, workspaceID string) ([]*match.Summary, error)
	Get(ctx context.Context, workspaceID, matchID string) (*match.Summary, error)
}

// MatchHandler はマッチ参照のHTTPハンドラー。
type MatchHandler struct {
	service MatchServiceInterface
}

// NewMatchHandler はMatchHandlerを生成する。
func NewMatchHandler(service MatchServiceInterface) *MatchHandler {
	return &MatchHandler{service: service}
}

type memberReflectionResponse struct {
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName"`
	DisplayName string   `json:"displayName"`
	Chips       []string `json:"chips"`
	Note        *string  `json:"note"`
	LikedAt     string   `json:"likedAt"`
}

type matchItemResponse struct {
	ID           string                     `json:"id"`
	FundraiseID  string                     `json:"fundraiseId"`
	CompanyName  string                     `json:"companyName"`
	Description  string                     `json:"description"`
	Stage        string                     `json:"stage"`
	AmountRaised string                     `json:"amountRaised"`
	Mode         string                     `json:"mode"`
	MatchedAt    string                     `json:"matchedAt"`
	Reflections  []memberReflectionResponse `json:"reflections"`
}

// ListMatches はワークスペースのマッチを新しい順で返す。
// GET /api/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, ok := requireMember(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.List(r.Context(), workspaceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]matchItemResponse, len(summaries))
	for i, s := range summaries {
		items[i] = toMatchItemResponse(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": items})
}

// GetMatch はマッチの詳細と調達の全情報を返す。
// GET /api/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	_, workspaceID, ok := requireMember(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Get(r.Context(), workspaceID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"match":     toMatchItemResponse(summary),
		"fundraise": toFundraiseResponse(summary.Fundraise),
	})
}

func toMatchItemResponse(s *match.Summary) matchItemResponse {
	item := matchItemResponse{
		ID:          s.Match.ID,
		FundraiseID: s.Match.FundraiseID,
		CompanyName: unknownCompanyName,
		Mode:        string(s.Match.Mode),
		MatchedAt:   formatTime(s.Match.CreatedAt),
		Reflections: make([]memberReflectionResponse, len(s.Reflections)),
	}
	if f := s.Fundraise; f != nil {
		if f.CompanyName != "" {
			item.CompanyName = f.CompanyName
		}
		item.Description = f.Description
		item.Stage = string(f.Stage)
		item.AmountRaised = f.AmountRaised
	}
	for i, mr := range s.Reflections {
		chips := mr.Chips
		if chips == nil {
			chips = []string{}
		}
		item.Reflections[i] = memberReflectionResponse{
			UserID:      mr.UserID,
			UserName:    mr.UserName,
			DisplayName: mr.DisplayName,
			Chips:       chips,
			Note:        mr.Note,
			LikedAt:     formatTime(mr.LikedAt),
		}
	}
	return item
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundswap/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// GetFeed はワークスペースのシードに基づく並び順でフィードを返す。
	GetFeed(ctx context.Context, mode model.Mode, seed string) ([]model.Fundraise, error)
}

// ProgressServiceInterface は進捗カーソルのサービスインターフェース。
type ProgressServiceInterface interface {
	GetCursor(ctx context.Context, userID string, mode model.Mode) (*model.ProgressCursor, error)
	SetCursor(ctx context.Context, userID string, mode model.Mode, requested int) (*model.ProgressCursor, error)
	ClampForFeed(ctx context.Context, userID string, mode model.Mode, feedLength int) (int, error)
}

// FeedHandler はフィードと進捗カーソルのHTTPハンドラー。
type FeedHandler struct {
	feeds      FeedServiceInterface
	progress   ProgressServiceInterface
	workspaces WorkspaceGetter
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(feeds FeedServiceInterface, progress ProgressServiceInterface, workspaces WorkspaceGetter) *FeedHandler {
	return &FeedHandler{
		feeds:      feeds,
		progress:   progress,
		workspaces: workspaces,
	}
}

type feedResponse struct {
	Feed       []fundraiseResponse `json:"feed"`
	TotalCount int                 `json:"totalCount"`
	UserCursor int                 `json:"userCursor"`
}

type progressResponse struct {
	Cursor    int    `json:"cursor"`
	UpdatedAt string `json:"updatedAt"`
}

type updateProgressRequest struct {
	Cursor *int `json:"cursor"`
}

// GetFeed はワークスペースのフィードとユーザーのカーソル位置を返す。
// GET /api/feed/{mode}
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requireMember(w, r)
	if !ok {
		return
	}
	mode, err := model.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	ws, err := h.workspaces.Get(r.Context(), workspaceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	records, err := h.feeds.GetFeed(r.Context(), mode, ws.Seed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cursor, err := h.progress.ClampForFeed(r.Context(), userID, mode, len(records))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := feedResponse{
		Feed:       make([]fundraiseResponse, len(records)),
		TotalCount: len(records),
		UserCursor: cursor,
	}
	for i := range records {
		resp.Feed[i] = toFundraiseResponse(&records[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProgress はユーザーのカーソル位置を返す。
// GET /api/progress/{mode}
func (h *FeedHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireMember(w, r)
	if !ok {
		return
	}
	mode, err := model.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cursor, err := h.progress.GetCursor(r.Context(), userID, mode)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(cursor))
}

// UpdateProgress はカーソル位置をフィードの範囲に収めて保存する。
// PUT /api/progress/{mode}
func (h *FeedHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requireMember(w, r)
	if !ok {
		return
	}
	mode, err := model.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req updateProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Cursor == nil {
		handleServiceError(w, model.NewInvalidRequestError("cursorは必須です"))
		return
	}

	cursor, err := h.progress.SetCursor(r.Context(), userID, mode, *req.Cursor)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(cursor))
}

func toProgressResponse(c *model.ProgressCursor) progressResponse {
	return progressResponse{
		Cursor:    c.CursorIndex,
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

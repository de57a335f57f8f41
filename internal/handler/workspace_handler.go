package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/fundswap/internal/model"
)

// WorkspaceServiceInterface はワークスペースハンドラーが必要とするサービスインターフェース。
type WorkspaceServiceInterface interface {
	WorkspaceGetter
	Create(ctx context.Context, userID, name string) (*model.Workspace, error)
	Join(ctx context.Context, userID, inviteCode string) (*model.Workspace, error)
	Current(ctx context.Context, userID string) (*model.Workspace, []*model.User, error)
}

// WorkspaceHandler はワークスペース管理のHTTPハンドラー。
type WorkspaceHandler struct {
	service WorkspaceServiceInterface
}

// NewWorkspaceHandler はWorkspaceHandlerを生成する。
func NewWorkspaceHandler(service WorkspaceServiceInterface) *WorkspaceHandler {
	return &WorkspaceHandler{service: service}
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

type joinWorkspaceRequest struct {
	InviteCode string `json:"inviteCode"`
}

// Create はワークスペースを作成し、作成者をメンバーにする。
// POST /api/workspaces
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"workspace": toWorkspaceResponse(ws)})
}

// Join は招待コードでワークスペースに参加する。
// POST /api/workspaces/join
func (h *WorkspaceHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req joinWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws, err := h.service.Join(r.Context(), userID, req.InviteCode)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspace": toWorkspaceResponse(ws)})
}

// Current は所属ワークスペースとメンバーを返す。未参加の場合はworkspaceがnull。
// GET /api/workspaces/current
func (h *WorkspaceHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	ws, members, err := h.service.Current(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace": toWorkspaceResponse(ws),
		"members":   toUserResponses(members),
	})
}

// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/fundswap/internal/middleware"
	"github.com/hitoshi/fundswap/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	WorkspaceID *string `json:"workspace_id"`
	CreatedAt   string  `json:"created_at"`
}

// workspaceResponse はワークスペース情報のAPIレスポンス。
type workspaceResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Seed       string `json:"seed"`
	InviteCode string `json:"invite_code"`
	CreatedAt  string `json:"created_at"`
}

// fundraiseResponse は資金調達のAPIレスポンス。
type fundraiseResponse struct {
	ID           string   `json:"id"`
	CompanyName  string   `json:"company_name"`
	Description  string   `json:"description"`
	Stage        string   `json:"stage"`
	AmountRaised string   `json:"amount_raised"`
	AnnouncedAt  string   `json:"announced_at"`
	SourceURL    string   `json:"source_url"`
	Investors    []string `json:"investors"`
	Geography    string   `json:"geography,omitempty"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:          u.ID,
		Name:        u.Name,
		DisplayName: u.DisplayName,
		CreatedAt:   formatTime(u.CreatedAt),
	}
	if u.InWorkspace() {
		wsID := u.WorkspaceID
		resp.WorkspaceID = &wsID
	}
	return resp
}

func toUserResponses(users []*model.User) []userResponse {
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

// toWorkspaceResponse はnilの場合nilを返し、JSONではnullになる。
func toWorkspaceResponse(ws *model.Workspace) *workspaceResponse {
	if ws == nil {
		return nil
	}
	return &workspaceResponse{
		ID:         ws.ID,
		Name:       ws.Name,
		Seed:       ws.Seed,
		InviteCode: ws.InviteCode,
		CreatedAt:  formatTime(ws.CreatedAt),
	}
}

func toFundraiseResponse(f *model.Fundraise) fundraiseResponse {
	investors := f.Investors
	if investors == nil {
		investors = []string{}
	}
	return fundraiseResponse{
		ID:           f.ID,
		CompanyName:  f.CompanyName,
		Description:  f.Description,
		Stage:        string(f.Stage),
		AmountRaised: f.AmountRaised,
		AnnouncedAt:  formatTime(f.AnnouncedAt),
		SourceURL:    f.SourceURL,
		Investors:    investors,
		Geography:    f.Geography,
	}
}

// formatTime はUTCのRFC3339（ミリ秒付き）で時刻を文字列にする。
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをJSONとして読み込む。
// 失敗した場合はINVALID_REQUESTを書き込んでfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return false
	}
	return true
}

// requireUserID はコンテキストからユーザーIDを取り出す。
// 取得できない場合は401を書き込んでfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// requireMember はコンテキストからユーザーIDとワークスペースIDを取り出す。
func requireMember(w http.ResponseWriter, r *http.Request) (userID, workspaceID string, ok bool) {
	userID, ok = requireUserID(w, r)
	if !ok {
		return "", "", false
	}
	workspaceID, err := middleware.WorkspaceIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewWorkspaceRequiredError())
		return "", "", false
	}
	return userID, workspaceID, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidMode, model.ErrCodeInvalidDecision,
		model.ErrCodeInvalidCursor, model.ErrCodeReflectionNotAllowed:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeWorkspaceRequired:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeWorkspaceNotFound, model.ErrCodeInvalidInviteCode,
		model.ErrCodeFundraiseNotFound, model.ErrCodeSwipeNotFound, model.ErrCodeMatchNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyInWorkspace:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// isAPIError はerrが指定コードのAPIErrorかどうかを返す。
func isAPIError(err error, code string) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

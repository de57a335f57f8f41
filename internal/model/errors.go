// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, not_found, workspace, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInvalidMode          = "INVALID_MODE"
	ErrCodeInvalidDecision      = "INVALID_DECISION"
	ErrCodeInvalidCursor        = "INVALID_CURSOR"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeWorkspaceNotFound    = "WORKSPACE_NOT_FOUND"
	ErrCodeWorkspaceRequired    = "WORKSPACE_REQUIRED"
	ErrCodeAlreadyInWorkspace   = "ALREADY_IN_WORKSPACE"
	ErrCodeInvalidInviteCode    = "INVALID_INVITE_CODE"
	ErrCodeInviteCodeExhausted  = "INVITE_CODE_EXHAUSTED"
	ErrCodeFundraiseNotFound    = "FUNDRAISE_NOT_FOUND"
	ErrCodeSwipeNotFound        = "SWIPE_NOT_FOUND"
	ErrCodeMatchNotFound        = "MATCH_NOT_FOUND"
	ErrCodeReflectionNotAllowed = "REFLECTION_NOT_ALLOWED"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエスト内容の不備を表すエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidModeError は無効なモードエラーを生成する。
func NewInvalidModeError(mode string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMode,
		Message:  fmt.Sprintf("無効なモードです: %s", mode),
		Category: "validation",
		Action:   "モードには archive または recent を指定してください。",
	}
}

// NewInvalidDecisionError は無効な判定値エラーを生成する。
func NewInvalidDecisionError(decision string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDecision,
		Message:  fmt.Sprintf("無効な判定です: %s", decision),
		Category: "validation",
		Action:   "decisionには like または pass を指定してください。",
	}
}

// NewInvalidCursorError は無効なカーソル値エラーを生成する。
func NewInvalidCursorError(cursor int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCursor,
		Message:  fmt.Sprintf("無効なカーソル値です: %d", cursor),
		Category: "validation",
		Action:   "カーソルには0以上の整数を指定してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", name),
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewWorkspaceNotFoundError はワークスペースが見つからない場合のエラーを生成する。
func NewWorkspaceNotFoundError(workspaceID string) *APIError {
	return &APIError{
		Code:     ErrCodeWorkspaceNotFound,
		Message:  fmt.Sprintf("ワークスペースが見つかりません: %s", workspaceID),
		Category: "not_found",
		Action:   "ワークスペースを作成するか、招待コードで参加してください。",
	}
}

// NewWorkspaceRequiredError はワークスペース未参加のユーザーが参加必須のAPIを呼んだ場合のエラーを生成する。
func NewWorkspaceRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeWorkspaceRequired,
		Message:  "ワークスペースに参加していません。",
		Category: "workspace",
		Action:   "ワークスペースを作成するか、招待コードで参加してください。",
	}
}

// NewAlreadyInWorkspaceError は既にワークスペースに参加しているユーザーが作成・参加しようとした場合のエラーを生成する。
func NewAlreadyInWorkspaceError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyInWorkspace,
		Message:  "既にワークスペースに参加しています。",
		Category: "workspace",
		Action:   "1ユーザーが参加できるワークスペースは1つだけです。",
	}
}

// NewInvalidInviteCodeError は招待コードに該当するワークスペースがない場合のエラーを生成する。
func NewInvalidInviteCodeError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInviteCode,
		Message:  fmt.Sprintf("招待コードが無効です: %s", code),
		Category: "not_found",
		Action:   "招待コードを確認してください。",
	}
}

// NewInviteCodeExhaustedError は一意な招待コードを生成できなかった場合のエラーを生成する。
func NewInviteCodeExhaustedError() *APIError {
	return &APIError{
		Code:     ErrCodeInviteCodeExhausted,
		Message:  "招待コードの生成に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewFundraiseNotFoundError は指定された調達がデータセットに存在しない場合のエラーを生成する。
func NewFundraiseNotFoundError(fundraiseID string, mode Mode) *APIError {
	return &APIError{
		Code:     ErrCodeFundraiseNotFound,
		Message:  fmt.Sprintf("指定された調達が見つかりません: %s (%s)", fundraiseID, mode),
		Category: "not_found",
		Action:   "フィードを再読み込みしてください。",
	}
}

// NewSwipeNotFoundError はスワイプが見つからない場合のエラーを生成する。
func NewSwipeNotFoundError(swipeID string) *APIError {
	return &APIError{
		Code:     ErrCodeSwipeNotFound,
		Message:  fmt.Sprintf("指定されたスワイプが見つかりません: %s", swipeID),
		Category: "not_found",
		Action:   "スワイプIDを確認してください。",
	}
}

// NewMatchNotFoundError はマッチが見つからない場合のエラーを生成する。
func NewMatchNotFoundError(matchID string) *APIError {
	return &APIError{
		Code:     ErrCodeMatchNotFound,
		Message:  fmt.Sprintf("指定されたマッチが見つかりません: %s", matchID),
		Category: "not_found",
		Action:   "マッチ一覧を再読み込みしてください。",
	}
}

// NewReflectionNotAllowedError はいいね以外のスワイプにリフレクションを付けようとした場合のエラーを生成する。
func NewReflectionNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeReflectionNotAllowed,
		Message:  "リフレクションはいいねしたスワイプにのみ付けられます。",
		Category: "validation",
		Action:   "いいねしたスワイプを指定してください。",
	}
}

// NewRateLimitedError はレート制限を超えた場合のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

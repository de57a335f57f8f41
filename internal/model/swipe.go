// Package model はドメインモデルを定義する。
package model

import "time"

// Decision はスワイプの判定を表す。
type Decision string

const (
	// DecisionLike は「いいね」を表す。
	DecisionLike Decision = "like"
	// DecisionPass は「パス」を表す。
	DecisionPass Decision = "pass"
)

// ParseDecision は文字列をDecisionに変換する。未定義の値の場合はINVALID_DECISIONエラーを返す。
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionLike, DecisionPass:
		return Decision(s), nil
	default:
		return "", NewInvalidDecisionError(s)
	}
}

// Swipe はメンバー1人の1件の調達に対する判定を表す。
// (UserID, FundraiseID, Mode) ごとに最大1件で、再スワイプ時はIDを維持したまま上書きされる。
type Swipe struct {
	ID          string
	UserID      string
	FundraiseID string
	Mode        Mode
	Decision    Decision
	CreatedAt   time.Time
}

// Match はワークスペースの全メンバーが同じモードで同じ調達にいいねしたことを表す。
// (WorkspaceID, FundraiseID, Mode) で一意。一度作成されたら削除されない。
type Match struct {
	ID          string
	WorkspaceID string
	FundraiseID string
	Mode        Mode
	CreatedAt   time.Time
}

// ProgressCursor はユーザーごと・モードごとのフィード上の位置を表す。
type ProgressCursor struct {
	UserID      string
	Mode        Mode
	CursorIndex int
	UpdatedAt   time.Time
}

// Reflection はいいねしたスワイプに付けるタグとメモ。
// SwipeIDごとに最大1件。
type Reflection struct {
	ID        string
	SwipeID   string
	UserID    string
	Chips     []string
	Note      *string
	CreatedAt time.Time
}

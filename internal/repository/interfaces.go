// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/fundswap/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByName はログイン名でユーザーを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.User, error)

	// List はログイン可能な全ユーザーを名前順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// ListByWorkspace はワークスペースのメンバーを参加順で返す。
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.User, error)

	// JoinWorkspace はユーザーをワークスペースに参加させる。
	// 既に別のワークスペースに参加している場合はfalseを返し、何も変更しない。
	JoinWorkspace(ctx context.Context, userID, workspaceID string) (bool, error)

	// Upsert は名前をキーにユーザーを作成または表示名を更新する。
	Upsert(ctx context.Context, user *model.User) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// WorkspaceRepository はワークスペースの永続化インターフェース。
type WorkspaceRepository interface {
	// FindByID は指定IDのワークスペースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Workspace, error)

	// FindByInviteCode は招待コードでワークスペースを取得する。見つからない場合はnilを返す。
	FindByInviteCode(ctx context.Context, code string) (*model.Workspace, error)

	// CreateWithOwner はワークスペースを作成し、作成者を同一トランザクションでメンバーにする。
	// 招待コードが既存と衝突した場合はErrInviteCodeConflictを返す。
	// 作成者が既に別のワークスペースに参加している場合はErrAlreadyInWorkspaceを返す。
	CreateWithOwner(ctx context.Context, workspace *model.Workspace, ownerID string) error
}

// SwipeRepository はスワイプ判定の永続化インターフェース。
type SwipeRepository interface {
	// Upsert は(user_id, fundraise_id, mode)をキーにスワイプを作成または上書きする。
	// 既存の場合はIDを維持したまま判定と日時を更新し、保存後のレコードを返す。
	Upsert(ctx context.Context, swipe *model.Swipe) (*model.Swipe, error)

	// FindByID は指定IDのスワイプを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Swipe, error)

	// ListLikes は指定メンバーのうち、調達にいいねしているスワイプを返す。
	ListLikes(ctx context.Context, fundraiseID string, mode model.Mode, userIDs []string) ([]*model.Swipe, error)
}

// MatchRepository はマッチの永続化インターフェース。
type MatchRepository interface {
	// CreateIfAbsent はマッチを挿入する。既に存在する場合は何もしない。
	// 保存済みのマッチと、この呼び出しで挿入したかどうかを返す。
	CreateIfAbsent(ctx context.Context, match *model.Match) (*model.Match, bool, error)

	// ListByWorkspace はワークスペースのマッチを新しい順で返す。
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*model.Match, error)

	// FindByIDAndWorkspace はワークスペースに属するマッチを取得する。見つからない場合はnilを返す。
	FindByIDAndWorkspace(ctx context.Context, id, workspaceID string) (*model.Match, error)
}

// ProgressRepository は進捗カーソルの永続化インターフェース。
type ProgressRepository interface {
	// Find はユーザーとモードのカーソルを取得する。未保存の場合はnilを返す。
	Find(ctx context.Context, userID string, mode model.Mode) (*model.ProgressCursor, error)

	// Upsert はカーソルを保存し、保存後の値を返す。
	Upsert(ctx context.Context, userID string, mode model.Mode, cursorIndex int) (*model.ProgressCursor, error)
}

// ReflectionRepository はリフレクションの永続化インターフェース。
type ReflectionRepository interface {
	// Upsert はswipe_idをキーにリフレクションを作成または上書きする。
	Upsert(ctx context.Context, reflection *model.Reflection) (*model.Reflection, error)

	// ListBySwipeIDs は指定スワイプに付いたリフレクションを作成日時の昇順で返す。
	ListBySwipeIDs(ctx context.Context, swipeIDs []string) ([]*model.Reflection, error)
}

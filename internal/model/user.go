// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Nameはログインに使う小文字のハンドル名。
type User struct {
	ID          string
	Name        string
	DisplayName string
	WorkspaceID string // 未参加の場合は空文字
	CreatedAt   time.Time
}

// InWorkspace はユーザーがワークスペースに参加済みかどうかを返す。
func (u *User) InWorkspace() bool {
	return u.WorkspaceID != ""
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Workspace はフィードの並び順を共有するメンバーのグループを表す。
// Seedは作成時に1回だけ生成され、以降変更されない。
type Workspace struct {
	ID         string
	Name       string
	Seed       string
	InviteCode string
	CreatedAt  time.Time
}

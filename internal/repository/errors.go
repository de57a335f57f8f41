package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrInviteCodeConflict は招待コードが既存のワークスペースと衝突したことを表す。
	ErrInviteCodeConflict = errors.New("invite code already in use")

	// ErrAlreadyInWorkspace はユーザーが既にワークスペースに参加していることを表す。
	ErrAlreadyInWorkspace = errors.New("user already belongs to a workspace")
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

// isUniqueViolation はerrが指定制約の一意制約違反かどうかを返す。
// constraintが空の場合は制約名を問わない。
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

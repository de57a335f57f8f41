package model

import (
	"errors"
	"strings"
	"testing"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"archive", "recent"} {
		m, err := ParseMode(s)
		if err != nil {
			t.Errorf("ParseMode(%q) returned error: %v", s, err)
		}
		if string(m) != s {
			t.Errorf("ParseMode(%q) = %q", s, m)
		}
	}

	for _, s := range []string{"", "Archive", "future", " recent"} {
		_, err := ParseMode(s)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Code != ErrCodeInvalidMode {
			t.Errorf("ParseMode(%q) err = %v, want INVALID_MODE", s, err)
		}
	}
}

func TestParseDecision(t *testing.T) {
	for _, s := range []string{"like", "pass"} {
		d, err := ParseDecision(s)
		if err != nil || string(d) != s {
			t.Errorf("ParseDecision(%q) = %q, %v", s, d, err)
		}
	}

	for _, s := range []string{"", "LIKE", "superlike"} {
		_, err := ParseDecision(s)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Code != ErrCodeInvalidDecision {
			t.Errorf("ParseDecision(%q) err = %v, want INVALID_DECISION", s, err)
		}
	}
}

func TestUser_InWorkspace(t *testing.T) {
	if (&User{}).InWorkspace() {
		t.Error("user without workspace id should not be in a workspace")
	}
	if !(&User{WorkspaceID: "ws-1"}).InWorkspace() {
		t.Error("user with workspace id should be in a workspace")
	}
}

// TestAPIError_Format はエラー文字列にコードとメッセージが含まれることを検証する。
func TestAPIError_Format(t *testing.T) {
	err := NewFundraiseNotFoundError("f-1", ModeRecent)
	if !strings.HasPrefix(err.Error(), "[FUNDRAISE_NOT_FOUND] ") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "f-1") {
		t.Errorf("Error() = %q, want fundraise id", err.Error())
	}
}

func TestAPIError_ConstructorsSetCategory(t *testing.T) {
	tests := []struct {
		err      *APIError
		code     string
		category string
	}{
		{NewInvalidRequestError("x"), ErrCodeInvalidRequest, "validation"},
		{NewInvalidCursorError(-1), ErrCodeInvalidCursor, "validation"},
		{NewUnauthorizedError(), ErrCodeUnauthorized, "auth"},
		{NewWorkspaceRequiredError(), ErrCodeWorkspaceRequired, "workspace"},
		{NewAlreadyInWorkspaceError(), ErrCodeAlreadyInWorkspace, "workspace"},
		{NewMatchNotFoundError("m"), ErrCodeMatchNotFound, "not_found"},
	}
	for _, tt := range tests {
		if tt.err.Code != tt.code {
			t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
		}
		if tt.err.Category != tt.category {
			t.Errorf("%s Category = %q, want %q", tt.code, tt.err.Category, tt.category)
		}
		if tt.err.Action == "" {
			t.Errorf("%s Action is empty", tt.code)
		}
	}
}

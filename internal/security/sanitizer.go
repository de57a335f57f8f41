package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は外部データやユーザー入力からHTMLを取り除き、表示用のプレーンテキストにする。
// データセットの説明文とリフレクションのメモに使用する。
type TextSanitizer interface {
	// Clean はHTMLタグを除去し、エンティティを戻し、連続する空白を1つにまとめる。
	Clean(raw string) string

	// CleanLimit はCleanした結果を最大maxRunes文字に切り詰める。
	CleanLimit(raw string, maxRunes int) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
// StrictPolicyは全てのタグを除去し、script/styleの中身も出力しない。
// ブロック要素の境界で単語が連結しないよう、タグ除去時に空白を挿入する。
func NewTextSanitizer() TextSanitizer {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return &textSanitizer{policy: p}
}

func (s *textSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	// StrictPolicyはテキストをエスケープして返すため、表示用に戻す
	return strings.Join(strings.Fields(html.UnescapeString(stripped)), " ")
}

func (s *textSanitizer) CleanLimit(raw string, maxRunes int) string {
	cleaned := s.Clean(raw)
	if maxRunes <= 0 || utf8.RuneCountInString(cleaned) <= maxRunes {
		return cleaned
	}
	runes := []rune(cleaned)
	return strings.TrimSpace(string(runes[:maxRunes]))
}

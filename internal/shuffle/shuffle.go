// Package shuffle はワークスペースのシードに基づく決定的なシャッフルを提供する。
//
// 同じシードと同じID集合からは、入力順やプロセスに関係なく常に同じ並び順が得られる。
// 既存クライアントが生成した並び順と互換性を保つため、文字列ハッシュとMulberry32の
// 漸化式は32bit演算まで厳密に再現している。
package shuffle

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"unicode/utf16"
)

// mulberryIncrement はMulberry32で状態に加算する奇数定数。
const mulberryIncrement uint32 = 0x6D2B79F5

// seedAlphabet はワークスペースシードに使う文字集合。
const seedAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// seedLength は生成するワークスペースシードの長さ。
const seedLength = 32

// StringToSeed は文字列シードを32bitの数値シードに変換する。
// UTF-16コードユニットごとに hash = hash*31 + c を符号付き32bitで折り返して計算し、
// 最後に絶対値を取る。-2^31の絶対値は2^31としてuint32で表す。
func StringToSeed(s string) uint32 {
	var hash int32
	for _, c := range utf16.Encode([]rune(s)) {
		hash = hash*31 + int32(c)
	}
	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return uint32(abs)
}

// Mulberry32 は32bit状態の高速な疑似乱数生成器。
// ゼロ値は状態0から開始する。
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 は指定された状態で生成器を初期化する。
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Float64 は[0, 1)の範囲の次の値を返す。
func (m *Mulberry32) Float64() float64 {
	m.state += mulberryIncrement
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Shuffle はitemsを決定的にシャッフルした新しいスライスを返す。入力スライスは変更しない。
//
// 1. idの文字列バイト順でソートし、入力順への依存をなくす
// 2. StringToSeed(seed)でMulberry32を初期化する
// 3. 末尾からインデックス1までFisher-Yatesで入れ替える
func Shuffle[T any](items []T, id func(T) string, seed string) []T {
	result := slices.Clone(items)
	slices.SortStableFunc(result, func(a, b T) int {
		return strings.Compare(id(a), id(b))
	})

	rng := NewMulberry32(StringToSeed(seed))
	for i := len(result) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		result[i], result[j] = result[j], result[i]
	}

	return result
}

// GenerateSeed は新しいワークスペース用のランダムなシード文字列を生成する。
func GenerateSeed() (string, error) {
	return randomString(seedAlphabet, seedLength)
}

// randomString はalphabetから暗号論的乱数でn文字を選んだ文字列を返す。
func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		sb.WriteByte(alphabet[idx.Int64()])
	}
	return sb.String(), nil
}

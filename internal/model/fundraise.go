// Package model はドメインモデルを定義する。
package model

import "time"

// Mode はフィードの種別を表す。
// archiveとrecentは完全に独立しており、スワイプやマッチもモードごとに判定される。
type Mode string

const (
	// ModeArchive はワークスペースのシードでシャッフルされた過去データのフィード。
	ModeArchive Mode = "archive"
	// ModeRecent は発表日時の新しい順に並んだ直近データのフィード。
	ModeRecent Mode = "recent"
)

// Valid はモードが定義済みの値かどうかを返す。
func (m Mode) Valid() bool {
	return m == ModeArchive || m == ModeRecent
}

// ParseMode は文字列をModeに変換する。未定義の値の場合はINVALID_MODEエラーを返す。
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", NewInvalidModeError(s)
	}
	return m, nil
}

// Stage は資金調達ラウンドの種別を表す。
type Stage string

const (
	StagePreSeed  Stage = "Pre-Seed"
	StageSeed     Stage = "Seed"
	StageSeriesA  Stage = "Series A"
	StageSeriesB  Stage = "Series B"
	StageSeriesC  Stage = "Series C"
	StageSeriesDP Stage = "Series D+"
	StageGrowth   Stage = "Growth"
)

// Fundraise は1件の資金調達発表を表す。
// データセットのロード時に生成され、以降は変更されない。
type Fundraise struct {
	ID           string
	CompanyName  string
	Description  string
	Stage        Stage
	AmountRaised string // "$15M" のような表示用文字列
	AnnouncedAt  time.Time
	SourceURL    string
	Investors    []string
	Geography    string
}

// Package dataset は調達データセットの読み込み、正規化、重複排除を行う。
//
// 外部ソース（CrunchbaseのCSVエクスポート、資金調達ニュースのRSS/Atom）から取得した
// RawRecordをmodel.Fundraiseに変換し、archiveとrecentの2つのデータセットを
// プロセス内で1回だけロードして保持する。
package dataset

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/security"
)

// fundraiseNamespace は調達IDを導出するUUIDv5の名前空間。
// 変更すると保存済みのスワイプやマッチとIDが一致しなくなる。
var fundraiseNamespace = uuid.MustParse("6f0c2f1e-5b8a-4d3c-9e71-2a4b8c0d1f35")

const (
	defaultCompanyName = "Unknown"
	defaultDescription = "No description available"
	undisclosedAmount  = "Undisclosed"
)

// announcedDateLayouts は発表日として受け付ける書式。先頭から順に試す。
var announcedDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
}

// RawRecord は外部ソースの1行分の調達データ。
// 値は全て未加工の文字列で、Loaderが正規化する。
type RawRecord struct {
	OrganizationName        string
	OrganizationDescription string
	FundingType             string
	MoneyRaisedUSD          string
	AnnouncedDate           string
	TransactionURL          string
	OrganizationURL         string
	LeadInvestors           string
	InvestorNames           string
	Location                string
}

// Loader はRawRecordを正規化し、重複を取り除く。
type Loader struct {
	sanitizer security.TextSanitizer
	logger    *slog.Logger
}

// NewLoader はLoaderを生成する。
func NewLoader(sanitizer security.TextSanitizer, logger *slog.Logger) *Loader {
	return &Loader{sanitizer: sanitizer, logger: logger}
}

// Load はRawRecordをmodel.Fundraiseに変換し、重複を除いて入力順で返す。
// 発表日を解釈できない行はスキップする。
func (l *Loader) Load(raw []RawRecord) []model.Fundraise {
	records := make([]model.Fundraise, 0, len(raw))
	skipped := 0

	for i, r := range raw {
		f, ok := l.mapRecord(r)
		if !ok {
			skipped++
			l.logger.Warn("発表日を解釈できない行をスキップしました",
				slog.Int("row", i+1),
				slog.String("organization", r.OrganizationName),
				slog.String("announced_date", r.AnnouncedDate),
			)
			continue
		}
		records = append(records, f)
	}

	deduped := Dedupe(records)
	if skipped > 0 || len(deduped) != len(records) {
		l.logger.Info("データセットを正規化しました",
			slog.Int("raw", len(raw)),
			slog.Int("skipped", skipped),
			slog.Int("duplicates", len(records)-len(deduped)),
			slog.Int("loaded", len(deduped)),
		)
	}
	return deduped
}

// Dedupe は同一キーのレコードのうち最初に現れたものだけを残す。
func Dedupe(records []model.Fundraise) []model.Fundraise {
	seen := make(map[string]struct{}, len(records))
	out := make([]model.Fundraise, 0, len(records))
	for _, f := range records {
		key := UniquenessKey(f.CompanyName, f.AnnouncedAt)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// UniquenessKey は調達の同一性判定キー（小文字の会社名と発表日時）を返す。
func UniquenessKey(companyName string, announcedAt time.Time) string {
	return strings.ToLower(companyName) + "|" + announcedAt.UTC().Format(time.RFC3339Nano)
}

// FundraiseID は同一性判定キーから決定的な調達IDを導出する。
// 同じ会社・発表日時であればプロセスの再起動後もデータセットが異なっても同じIDになる。
func FundraiseID(companyName string, announcedAt time.Time) string {
	return uuid.NewSHA1(fundraiseNamespace, []byte(UniquenessKey(companyName, announcedAt))).String()
}

func (l *Loader) mapRecord(r RawRecord) (model.Fundraise, bool) {
	announcedAt, ok := parseAnnouncedAt(r.AnnouncedDate)
	if !ok {
		return model.Fundraise{}, false
	}

	name := strings.TrimSpace(r.OrganizationName)
	if name == "" {
		name = defaultCompanyName
	}

	description := l.sanitizer.Clean(r.OrganizationDescription)
	if description == "" {
		description = defaultDescription
	}

	sourceURL := strings.TrimSpace(r.TransactionURL)
	if sourceURL == "" {
		sourceURL = strings.TrimSpace(r.OrganizationURL)
	}

	investors := r.LeadInvestors
	if strings.TrimSpace(investors) == "" {
		investors = r.InvestorNames
	}

	return model.Fundraise{
		ID:           FundraiseID(name, announcedAt),
		CompanyName:  name,
		Description:  description,
		Stage:        MapStage(r.FundingType),
		AmountRaised: FormatAmount(r.MoneyRaisedUSD),
		AnnouncedAt:  announcedAt,
		SourceURL:    sourceURL,
		Investors:    ParseInvestors(investors),
		Geography:    strings.TrimSpace(r.Location),
	}, true
}

func parseAnnouncedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range announcedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// MapStage はCrunchbaseのFunding Typeをラウンド種別に変換する。
// 判定できない場合はSeedとする。
func MapStage(fundingType string) model.Stage {
	t := strings.ToLower(fundingType)

	switch {
	case strings.Contains(t, "pre-seed"), strings.Contains(t, "pre seed"):
		return model.StagePreSeed
	case strings.Contains(t, "seed"):
		return model.StageSeed
	case strings.Contains(t, "series a"):
		return model.StageSeriesA
	case strings.Contains(t, "series b"):
		return model.StageSeriesB
	case strings.Contains(t, "series c"):
		return model.StageSeriesC
	case strings.Contains(t, "series d"), strings.Contains(t, "series e"), strings.Contains(t, "series f"):
		return model.StageSeriesDP
	case strings.Contains(t, "growth"), strings.Contains(t, "private equity"), strings.Contains(t, "post-ipo"):
		return model.StageGrowth
	default:
		return model.StageSeed
	}
}

// FormatAmount はUSD金額を "$1.2B" "$15M" "$500K" のような表示用文字列にする。
// 0や解釈できない値は "Undisclosed" を返す。
func FormatAmount(usd string) string {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(usd))
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return undisclosedAmount
	}

	switch {
	case amount >= 1_000_000_000:
		return "$" + oneDecimal(amount/1_000_000_000) + "B"
	case amount >= 1_000_000:
		return "$" + oneDecimal(amount/1_000_000) + "M"
	case amount >= 1_000:
		return "$" + strconv.FormatFloat(amount/1_000, 'f', 0, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(amount, 'f', -1, 64)
	}
}

// oneDecimal は小数1桁に丸め、末尾の ".0" を取り除く。
func oneDecimal(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
}

// ParseInvestors はカンマ区切りの投資家名を順序を保って分割する。
func ParseInvestors(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	investors := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			investors = append(investors, name)
		}
	}
	return investors
}

package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Source はRawRecordの取得元。
type Source interface {
	// Fetch は取得元の全レコードを返す。
	Fetch(ctx context.Context) ([]RawRecord, error)
	// Name はログ出力用の取得元名を返す。
	Name() string
}

// Crunchbase CSVエクスポートのヘッダー名
const (
	colOrganizationName        = "Organization Name"
	colOrganizationNameURL     = "Organization Name URL"
	colOrganizationDescription = "Organization Description"
	colFundingType             = "Funding Type"
	colMoneyRaisedUSD          = "Money Raised (in USD)"
	colAnnouncedDate           = "Announced Date"
	colTransactionNameURL      = "Transaction Name URL"
	colLeadInvestors           = "Lead Investors"
	colInvestorNames           = "Investor Names"
	colHeadquartersLocation    = "Headquarters Location"
	colOrganizationLocation    = "Organization Location"
)

// CSVFileSource はCrunchbaseのCSVエクスポートファイルを読み込む。
// ファイルが存在しない場合は警告を出して空のデータセットとして扱う。
type CSVFileSource struct {
	path   string
	logger *slog.Logger
}

// NewCSVFileSource はCSVFileSourceを生成する。
func NewCSVFileSource(path string, logger *slog.Logger) *CSVFileSource {
	return &CSVFileSource{path: path, logger: logger}
}

// Name はファイルパスを返す。
func (s *CSVFileSource) Name() string {
	return s.path
}

// Fetch はCSVファイルを読み込んでRawRecordを返す。
func (s *CSVFileSource) Fetch(ctx context.Context) ([]RawRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("データセットファイルが見つかりません",
			slog.String("path", s.path),
		)
		return []RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	return ParseCSV(ctx, f)
}

// ParseCSV はCrunchbase形式のCSVを読み込む。
// 1行目をヘッダーとして列名で値を取り出すため、列の順序や余分な列には依存しない。
func ParseCSV(ctx context.Context, r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		index[h] = i
	}

	var records []RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if isBlankRow(row) {
			continue
		}

		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		location := get(colHeadquartersLocation)
		if location == "" {
			location = get(colOrganizationLocation)
		}

		records = append(records, RawRecord{
			OrganizationName:        get(colOrganizationName),
			OrganizationDescription: get(colOrganizationDescription),
			FundingType:             get(colFundingType),
			MoneyRaisedUSD:          get(colMoneyRaisedUSD),
			AnnouncedDate:           get(colAnnouncedDate),
			TransactionURL:          get(colTransactionNameURL),
			OrganizationURL:         get(colOrganizationNameURL),
			LeadInvestors:           get(colLeadInvestors),
			InvestorNames:           get(colInvestorNames),
			Location:                location,
		})
	}

	return records, nil
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// URLValidator はSSRF検証付きのHTTPクライアントを提供する。
type URLValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// FeedSource は資金調達ニュースのRSS/Atomフィードからrecentデータセットを取得する。
type FeedSource struct {
	url         string
	guard       URLValidator
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

// NewFeedSource はFeedSourceを生成する。
func NewFeedSource(url string, guard URLValidator, timeout time.Duration, maxBodySize int64, logger *slog.Logger) *FeedSource {
	return &FeedSource{
		url:         url,
		guard:       guard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Name はフィードURLを返す。
func (s *FeedSource) Name() string {
	return s.url
}

// Fetch はフィードを取得してRawRecordに変換する。
func (s *FeedSource) Fetch(ctx context.Context) ([]RawRecord, error) {
	if err := s.guard.ValidateURL(s.url); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := s.guard.NewSafeClient(s.timeout, s.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Fundswap/1.0 Dataset Loader")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	records := ConvertFeedItems(parsed.Items)
	s.logger.Info("フィードからデータセットを取得しました",
		slog.String("url", s.url),
		slog.Int("http_status", resp.StatusCode),
		slog.Int("items", len(records)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return records, nil
}

var (
	// "Acme raises $15M Series A" のような見出しから会社名を切り出す
	headlineVerbPattern = regexp.MustCompile(`(?i)\s+(raises|secures|closes|lands|bags|nabs|gets)\s`)
	amountPattern       = regexp.MustCompile(`(?i)\$\s?([\d.,]+)\s*(k|m|b|million|billion|thousand)?\b`)
	leadInvestorPattern = regexp.MustCompile(`(?i)\bled by ([^.;()]+)`)
)

// ConvertFeedItems はgofeedの記事をRawRecordに変換する。
// 公開日時のない記事はAnnouncedDateが空になり、Loaderでスキップされる。
func ConvertFeedItems(items []*gofeed.Item) []RawRecord {
	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		text := item.Title + " " + item.Description
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		announced := ""
		if published != nil {
			announced = published.UTC().Format(time.RFC3339)
		}

		lead := ""
		if m := leadInvestorPattern.FindStringSubmatch(item.Description); m != nil {
			lead = strings.ReplaceAll(strings.TrimSpace(m[1]), " and ", ", ")
		}

		records = append(records, RawRecord{
			OrganizationName:        companyFromHeadline(item.Title),
			OrganizationDescription: item.Description,
			FundingType:             strings.Join(item.Categories, " ") + " " + item.Title,
			MoneyRaisedUSD:          amountFromText(text),
			AnnouncedDate:           announced,
			TransactionURL:          item.Link,
			LeadInvestors:           lead,
			Location:                item.Custom["location"],
		})
	}
	return records
}

func companyFromHeadline(title string) string {
	title = strings.TrimSpace(title)
	if loc := headlineVerbPattern.FindStringIndex(title); loc != nil {
		return strings.TrimSpace(title[:loc[0]])
	}
	return title
}

// amountFromText は本文中の最初の "$15M" 形式の金額をUSDの数値文字列にする。
func amountFromText(text string) string {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	number := strings.ReplaceAll(m[1], ",", "")
	var multiplier string
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		multiplier = "e3"
	case "m", "million":
		multiplier = "e6"
	case "b", "billion":
		multiplier = "e9"
	}
	return strings.TrimSuffix(number, ".") + multiplier
}

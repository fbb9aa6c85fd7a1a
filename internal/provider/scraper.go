package provider

import (
	"EcoWatch/pkg/logger"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// WaterScraper 抓取水文站公布的 HTML 表格
//
// 表格每行依次为：站点、城市、水位(m)、关注、警戒、危险、趋势；
// 趋势可以是文字或 ▲ ▼ ● 符号。
type WaterScraper struct {
	sourceURL  string
	httpClient *http.Client
	now        func() time.Time
}

func NewWaterScraper(sourceURL string, timeout time.Duration) *WaterScraper {
	return &WaterScraper{
		sourceURL:  sourceURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (ws *WaterScraper) WaterLevels(ctx context.Context, city string) ([]StationReading, error) {
	if ws.sourceURL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ws.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := ws.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the webpage: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the webpage: %w", err)
	}
	return ws.parse(doc, city), nil
}

func (ws *WaterScraper) parse(doc *goquery.Document, city string) []StationReading {
	want := normalize(city)
	timestamp := ws.now().UTC()
	if ts, ok := doc.Find("[data-updated]").First().Attr("data-updated"); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(ts)); err == nil {
			timestamp = t.UTC()
		}
	}

	var (
		data    []StationReading
		skipped int
	)
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			skipped++
			return
		}
		rowCity := strings.TrimSpace(cells.Eq(1).Text())
		if normalize(rowCity) != want {
			return
		}
		level, err := parseMetres(cells.Eq(2).Text())
		if err != nil {
			skipped++
			return
		}
		watch, _ := parseMetres(cells.Eq(3).Text())
		warning, _ := parseMetres(cells.Eq(4).Text())
		critical, _ := parseMetres(cells.Eq(5).Text())

		data = append(data, StationReading{
			LocationName: strings.TrimSpace(cells.Eq(0).Text()),
			City:         rowCity,
			Level:        level,
			Watch:        watch,
			Warning:      warning,
			Critical:     critical,
			Trend:        parseTrend(cells.Eq(6).Text()),
			RecordedAt:   timestamp,
			Source:       SourceScrape,
		})
	})
	logger.Debug("water table scraped", zap.String("city", city), zap.Int("stations", len(data)), zap.Int("skipped", skipped))
	return data
}

func parseMetres(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "m"))
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func parseTrend(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "▲", "rising", "up":
		return "rising"
	case "▼", "falling", "down":
		return "falling"
	default:
		return "stable"
	}
}

func normalize(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPClient 调用外部环境数据 JSON 接口
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Weather(ctx context.Context, city string) (WeatherReading, error) {
	var r WeatherReading
	if err := c.get(ctx, "weather", url.Values{"city": {city}}, &r); err != nil {
		return WeatherReading{}, err
	}
	r.Source = SourceHTTP
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	return r, nil
}

func (c *HTTPClient) AirQuality(ctx context.Context, city string) (AirQualityReading, error) {
	var r AirQualityReading
	if err := c.get(ctx, "air-quality", url.Values{"city": {city}}, &r); err != nil {
		return AirQualityReading{}, err
	}
	if r.AQI < 0 {
		return AirQualityReading{}, fmt.Errorf("air-quality: negative aqi %d", r.AQI)
	}
	r.Source = SourceHTTP
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	return r, nil
}

func (c *HTTPClient) WaterLevels(ctx context.Context, city string) ([]StationReading, error) {
	var resp struct {
		Stations []StationReading `json:"stations"`
	}
	if err := c.get(ctx, "water-levels", url.Values{"city": {city}}, &resp); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range resp.Stations {
		resp.Stations[i].Source = SourceHTTP
		if resp.Stations[i].City == "" {
			resp.Stations[i].City = city
		}
		if resp.Stations[i].RecordedAt.IsZero() {
			resp.Stations[i].RecordedAt = now
		}
	}
	return resp.Stations, nil
}

func (c *HTTPClient) Forecast(ctx context.Context, city string, days int) ([]ForecastDay, error) {
	var resp struct {
		Days []ForecastDay `json:"days"`
	}
	params := url.Values{"city": {city}, "days": {strconv.Itoa(days)}}
	if err := c.get(ctx, "forecast", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Days) > days {
		resp.Days = resp.Days[:days]
	}
	return resp.Days, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	fullURL := c.baseURL + "/" + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API error: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

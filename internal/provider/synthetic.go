package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	weatherDescriptions = []string{"Clear", "Partly Cloudy", "Cloudy", "Light Rain", "Thunderstorm", "Haze"}
	stationSuffixes     = []string{"River Gauge", "Lake", "Reservoir"}
)

// Synthetic 确定性的模拟数据：同一 seed、城市和时间槽总是得到相同读数
type Synthetic struct {
	seed  uint64
	slot  time.Duration
	clock clockwork.Clock
}

func NewSynthetic(seed int64, slot time.Duration, clock clockwork.Clock) *Synthetic {
	if slot <= 0 {
		slot = 30 * time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Synthetic{seed: uint64(seed), slot: slot, clock: clock}
}

func (s *Synthetic) rng(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewPCG(s.seed, h.Sum64()))
}

func (s *Synthetic) slotKey(now time.Time) string {
	return now.UTC().Truncate(s.slot).Format(time.RFC3339)
}

func between(r *rand.Rand, lo, hi float64) float64 {
	return round1(lo + r.Float64()*(hi-lo))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func (s *Synthetic) Weather(_ context.Context, city string) (WeatherReading, error) {
	now := s.clock.Now().UTC()
	r := s.rng("weather", normalize(city), s.slotKey(now))
	desc := weatherDescriptions[r.IntN(len(weatherDescriptions))]
	rain := 0.0
	if desc == "Light Rain" || desc == "Thunderstorm" {
		rain = between(r, 0.5, 25)
	}
	return WeatherReading{
		Temperature: between(r, 18, 38),
		Humidity:    between(r, 40, 95),
		Rainfall:    rain,
		WindSpeed:   between(r, 0, 30),
		Pressure:    between(r, 995, 1025),
		Description: desc,
		RecordedAt:  now,
		Source:      SourceSynthetic,
	}, nil
}

func (s *Synthetic) AirQuality(_ context.Context, city string) (AirQualityReading, error) {
	now := s.clock.Now().UTC()
	r := s.rng("air_quality", normalize(city), s.slotKey(now))
	return AirQualityReading{
		AQI:        r.IntN(250) + 20,
		PM25:       between(r, 5, 150),
		PM10:       between(r, 10, 250),
		NO2:        between(r, 5, 80),
		SO2:        between(r, 1, 40),
		CO:         between(r, 0.1, 4),
		O3:         between(r, 10, 120),
		RecordedAt: now,
		Source:     SourceSynthetic,
	}, nil
}

func (s *Synthetic) WaterLevels(_ context.Context, city string) ([]StationReading, error) {
	now := s.clock.Now().UTC()
	key := normalize(city)
	display := cases.Title(language.English).String(key)
	trends := []string{"rising", "falling", "stable"}
	out := make([]StationReading, 0, len(stationSuffixes))
	for _, suffix := range stationSuffixes {
		r := s.rng("water_level", key, suffix, s.slotKey(now))
		out = append(out, StationReading{
			LocationName: display + " " + suffix,
			City:         display,
			Level:        between(r, 1, 7),
			Trend:        trends[r.IntN(len(trends))],
			RecordedAt:   now,
			Source:       SourceSynthetic,
		})
	}
	return out, nil
}

// Forecast 从明天开始的 days 天预报，按天确定
func (s *Synthetic) Forecast(_ context.Context, city string, days int) ([]ForecastDay, error) {
	today := s.clock.Now().UTC()
	out := make([]ForecastDay, 0, days)
	for i := 1; i <= days; i++ {
		d := today.AddDate(0, 0, i).Format("2006-01-02")
		r := s.rng("forecast", normalize(city), d)
		low := between(r, 16, 28)
		out = append(out, ForecastDay{
			Date:        d,
			Low:         low,
			High:        round1(low + between(r, 3, 10)),
			Description: weatherDescriptions[r.IntN(len(weatherDescriptions))],
			RainChance:  r.IntN(101),
		})
	}
	return out, nil
}

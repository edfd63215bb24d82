package compliance

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

const (
	sparklineLength = 8
	trendSeed       = 42
)

// TrendPoint is one day of the synthetic portfolio trend.
type TrendPoint struct {
	Date            string `json:"date"`
	ComplianceScore int    `json:"avg_compliance_score"`
	RiskScore       int    `json:"overall_risk_score"`
}

// lcg is a 32-bit linear congruential generator. Same seed, same sequence.
type lcg struct {
	state uint32
}

func (g *lcg) next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / float64(math.MaxUint32)
}

// hashString is the classic 31-multiplier string hash over UTF-16 code units with
// 32-bit wraparound, returned as its absolute value.
func hashString(s string) uint32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// Sparkline returns 8 points ending at current. The seven earlier points are a
// bounded random walk backwards from current, seeded by the store id.
func Sparkline(storeID string, current int) []int {
	rng := &lcg{state: hashString(storeID)}
	points := make([]int, 0, sparklineLength)
	value := float64(current)
	for i := 0; i < sparklineLength-1; i++ {
		delta := (rng.next() - 0.45) * 14
		value = clamp(value+delta, 0, 100)
		points = append(points, roundInt(value))
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return append(points, current)
}

// Trend synthesises days+1 daily points ending on now's date. The series starts
// 18 points under avg (never below 30) and drifts towards avg with small noise.
func Trend(avg float64, days int, now time.Time) []TrendPoint {
	if days < 0 {
		days = 0
	}
	rng := &lcg{state: trendSeed}
	compliance := math.Max(30, avg-18)
	today := now.UTC()
	points := make([]TrendPoint, 0, days+1)
	for i := days; i >= 0; i-- {
		step := (avg - compliance) / float64(i+12)
		compliance = clamp(compliance+step+(rng.next()-0.48)*3, 0, 100)
		score := roundInt(compliance)
		points = append(points, TrendPoint{
			Date:            today.AddDate(0, 0, -i).Format("2006-01-02"),
			ComplianceScore: score,
			RiskScore:       100 - score,
		})
	}
	return points
}

// ParseTimeframe accepts any numeric spelling of 30, 90 or 180 days ("30",
// " 30", "30.0") and falls back to 90.
func ParseTimeframe(raw string) int {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 90
	}
	switch n {
	case 30:
		return 30
	case 180:
		return 180
	default:
		return 90
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package smartmoney

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

const (
	fastTradeMaxSeconds = 120
	rocketProfitPercent = 1000
	goodProfitPercent   = 40

	LabelDaily   = "DAILY"
	LabelNormal  = "NORMAL"
	LabelRare    = "RARE"
	LabelUnknown = "UNKNOWN"
)

// ClassifyStats is the behavioral profile of one wallet's trade history.
// Median actually carries the 75th percentile of inter-trade gaps in hours;
// the name matches the stored column, which is historical.
type ClassifyStats struct {
	Rockets      int64
	TradeCounts  int64
	ProfitTrades int64
	GoodProfit   int64
	FastTrades   float64
	Median       float64
	Label        string
}

func stripNonNumeric(s string, keepDot bool) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if keepDot && r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// durationToHours converts a holding-duration token to hours. "--", empty and
// unknown suffixes have no value.
func durationToHours(s string) (float64, bool) {
	if s == "" || s == "--" {
		return 0, false
	}

	v, err := strconv.ParseFloat(stripNonNumeric(s, true), 64)
	if err != nil {
		return 0, false
	}

	switch {
	case strings.HasSuffix(s, "s"):
		return v / 60 / 60, true
	case strings.HasSuffix(s, "m"):
		return v / 60, true
	case strings.HasSuffix(s, "h"):
		return v, true
	case strings.HasSuffix(s, "d"):
		return v * 24, true
	}
	return 0, false
}

// durationToSeconds reads a duration-of-trade sub-value; only seconds and
// minutes matter for the fast-trade rule.
func durationToSeconds(s string) int64 {
	v, err := strconv.ParseInt(stripNonNumeric(s, false), 10, 64)
	if err != nil {
		return 0
	}

	if strings.Contains(s, "s") {
		return v
	}
	if strings.Contains(s, "m") {
		return v * 60
	}
	return 0
}

// percentile computes the p-th percentile with linear interpolation between
// the two nearest ranks.
func percentile(vals []float64, p float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// medianIntervalAndLabel turns the raw holding-duration tokens into the
// inter-trade gap statistic and the cadence label. Needs at least two
// convertible tokens and at least one positive gap, otherwise the statistic
// is undefined and the label is UNKNOWN.
func medianIntervalAndLabel(durations []string) (q75, medianH float64, label string) {
	var hours []float64
	for _, d := range durations {
		if h, ok := durationToHours(d); ok {
			hours = append(hours, h)
		}
	}

	if len(hours) < 2 {
		return 0, 0, LabelUnknown
	}
	sort.Float64s(hours)

	var deltas []float64
	for i := 1; i < len(hours); i++ {
		if d := hours[i] - hours[i-1]; d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 0, 0, LabelUnknown
	}

	medianH = percentile(deltas, 50)
	q75 = percentile(deltas, 75)

	switch {
	case q75 <= 24:
		label = LabelDaily
	case q75 <= 168:
		label = LabelNormal
	default:
		label = LabelRare
	}
	return q75, medianH, label
}

// CountTrades scans up to maxRows rows of one wallet's trade history.
// TradeCounts is the full row count regardless of per-row parse success.
func CountTrades(rec *model.TradeHistoryRecord, maxRows int) ClassifyStats {
	stats := ClassifyStats{TradeCounts: int64(len(rec.Rows))}

	rows := rec.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	var fastCount int64
	var buyDurations []string

	for _, row := range rows {
		buyDurations = append(buyDurations, row.HoldingDuration)

		for _, d := range row.Durations {
			secs := durationToSeconds(d)
			if secs > 0 && secs < fastTradeMaxSeconds {
				fastCount++
			}
		}

		for _, p := range row.Profits {
			stats.ProfitTrades++

			numericPart := stripNonNumeric(p, true)
			f, err := strconv.ParseFloat(numericPart, 64)
			if err != nil {
				// malformed profit text, skip the value
				continue
			}

			if int64(f) > goodProfitPercent {
				stats.GoodProfit++
			}

			multiplier := 1.0
			if strings.Contains(p, "K") {
				multiplier = 1000
			}
			if f*multiplier > rocketProfitPercent {
				logger.Logrus.WithFields(logrus.Fields{"Profit": p}).Debug("rocket trade found")
				stats.Rockets++
			}
		}
	}

	if stats.TradeCounts > 0 {
		pct := float64(fastCount) / float64(stats.TradeCounts) * 100
		stats.FastTrades = math.Round(pct*10) / 10
	}

	stats.Median, _, stats.Label = medianIntervalAndLabel(buyDurations)
	return stats
}

// ClassifyFromRaw decodes one trade-history page record and computes the
// statistics. A page with no usable trade table yields zero counts and an
// UNKNOWN label instead of an error.
func ClassifyFromRaw(raw string, maxRows int) ClassifyStats {
	var rec model.TradeHistoryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Rows == nil {
		logger.Logrus.Warn("trade history record unusable, counting as empty")
		return ClassifyStats{Label: LabelUnknown}
	}
	return CountTrades(&rec, maxRows)
}

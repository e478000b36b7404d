// Package derive turns raw platform records into display-ready series.
// All functions are pure; scaling conventions are fixed here and nowhere
// else: byte totals use the decimal megabyte (1e6) and XP amounts use
// kilo-points (1e3), both rounded to two decimals.
package derive

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/reboot-tools/gradboard/internal/platform"
)

const (
	byteDivisor  = 1_000_000
	pointDivisor = 1_000
)

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BytesToMB converts a raw byte count to decimal megabytes.
func BytesToMB(bytes int64) float64 {
	return round2(float64(bytes) / byteDivisor)
}

// Points converts a raw XP amount to displayed kilo-points.
func Points(amount int64) float64 {
	return round2(float64(amount) / pointDivisor)
}

// skillPrefix marks skill transactions; the suffix names the skill.
const skillPrefix = "skill_"

// skillPriority is both the allow-list of recognized skills and the fixed
// display order of aggregates.
var skillPriority = []string{
	"prog",
	"algo",
	"go",
	"js",
	"html",
	"css",
	"sql",
	"back-end",
	"front-end",
	"unix",
	"docker",
	"stats",
	"game",
	"sys-admin",
	"tcp",
}

// SkillAggregate is the summed, scaled XP for one recognized skill.
type SkillAggregate struct {
	Type string  `json:"type"`
	XP   float64 `json:"xp"`
}

// AggregateSkills sums skill transactions per recognized skill name and
// orders the result by the fixed priority sequence. Transactions whose type
// is not a recognized skill are returned in dropped (distinct raw types,
// sorted) so the caller decides what to do with them instead of an implicit
// no-op.
func AggregateSkills(txs []platform.Transaction) (aggregates []SkillAggregate, dropped []string) {
	totals := make(map[string]int64)
	droppedSet := make(map[string]struct{})

	for _, tx := range txs {
		name, ok := strings.CutPrefix(tx.Type, skillPrefix)
		if !ok || !recognizedSkill(name) {
			droppedSet[tx.Type] = struct{}{}
			continue
		}
		totals[name] += tx.Amount
	}

	aggregates = make([]SkillAggregate, 0, len(totals))
	for _, name := range skillPriority {
		amount, ok := totals[name]
		if !ok {
			continue
		}
		aggregates = append(aggregates, SkillAggregate{Type: name, XP: Points(amount)})
	}

	dropped = make([]string, 0, len(droppedSet))
	for raw := range droppedSet {
		dropped = append(dropped, raw)
	}
	sort.Strings(dropped)
	return aggregates, dropped
}

func recognizedSkill(name string) bool {
	for _, known := range skillPriority {
		if known == name {
			return true
		}
	}
	return false
}

// SeriesPoint is one XP transaction scaled for display.
type SeriesPoint struct {
	Date       time.Time `json:"date"`
	XP         float64   `json:"xp"`
	ObjectName string    `json:"objectName"`
}

// XPSeries emits one scaled point per transaction, preserving input order.
func XPSeries(txs []platform.Transaction) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(txs))
	for _, tx := range txs {
		points = append(points, SeriesPoint{
			Date:       tx.CreatedAt,
			XP:         Points(tx.Amount),
			ObjectName: tx.Object.Name,
		})
	}
	return points
}

// MonthBucket is the summed XP for one calendar month. Month is the first
// instant of the month in UTC and is the sort key; Label is derived from it
// for display only.
type MonthBucket struct {
	Month time.Time `json:"month"`
	Label string    `json:"label"`
	XP    float64   `json:"xp"`
}

// MonthlyXP buckets transactions by calendar month and sums within each
// bucket, chronologically ordered. Buckets are keyed on the canonical month
// timestamp, never re-parsed from the display label.
func MonthlyXP(txs []platform.Transaction) []MonthBucket {
	totals := make(map[time.Time]int64)
	for _, tx := range txs {
		created := tx.CreatedAt.UTC()
		key := time.Date(created.Year(), created.Month(), 1, 0, 0, 0, 0, time.UTC)
		totals[key] += tx.Amount
	}

	buckets := make([]MonthBucket, 0, len(totals))
	for month, amount := range totals {
		buckets = append(buckets, MonthBucket{
			Month: month,
			Label: month.Format("Jan 2006"),
			XP:    Points(amount),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Month.Before(buckets[j].Month) })
	return buckets
}

// XP total sources reported by TotalXP.
const (
	TotalSourceServer = "server-aggregate"
	TotalSourceClient = "client-sum"
)

// TotalXP returns the displayed module XP total and which code path produced
// it: the server-computed aggregate when present, else a client-side sum of
// the series. The two can disagree when the underlying filters differ, so
// the source is part of the result.
func TotalXP(history platform.XPHistory) (points float64, source string) {
	if history.HasAggregate {
		return Points(history.AggregateXP), TotalSourceServer
	}
	var sum int64
	for _, tx := range history.Transactions {
		sum += tx.Amount
	}
	return Points(sum), TotalSourceClient
}

// AuditStats is the displayed audit ratio block.
type AuditStats struct {
	Ratio       float64 `json:"ratio"`
	DoneMB      float64 `json:"doneMb"`
	ReceivedMB  float64 `json:"receivedMb"`
	DoneBar     float64 `json:"doneBar"`
	ReceivedBar float64 `json:"receivedBar"`
}

// AuditSummary derives the audit ratio block from the user record. The
// server-computed ratio is displayed as-is; it is recomputed from the byte
// totals only when the server did not provide one. The received bar is fixed
// at 100% and the done bar is relative to received, capped at 100%.
func AuditSummary(user platform.User) AuditStats {
	ratio := user.AuditRatio
	if ratio == 0 && user.TotalDown > 0 {
		ratio = float64(user.TotalUp) / float64(user.TotalDown)
	}

	doneBar := 100.0
	if user.TotalDown > 0 {
		doneBar = math.Min(float64(user.TotalUp)/float64(user.TotalDown)*100, 100)
	} else if user.TotalUp == 0 {
		doneBar = 0
	}

	return AuditStats{
		Ratio:       math.Round(ratio*10) / 10,
		DoneMB:      BytesToMB(user.TotalUp),
		ReceivedMB:  BytesToMB(user.TotalDown),
		DoneBar:     round2(doneBar),
		ReceivedBar: 100,
	}
}

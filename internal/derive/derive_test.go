package derive

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/reboot-tools/gradboard/internal/platform"
)

func TestAggregateSkills_DropsUnknownTypes(t *testing.T) {
	txs := []platform.Transaction{
		{Type: "skill_go", Amount: 4000},
		{Type: "skill_unknown", Amount: 9999},
		{Type: "skill_go", Amount: 2000},
	}

	aggregates, dropped := AggregateSkills(txs)
	if len(aggregates) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggregates))
	}
	if aggregates[0].Type != "go" || aggregates[0].XP != 6.0 {
		t.Fatalf("expected {go 6.0}, got %+v", aggregates[0])
	}
	if len(dropped) != 1 || dropped[0] != "skill_unknown" {
		t.Fatalf("expected dropped [skill_unknown], got %v", dropped)
	}
}

func TestAggregateSkills_PriorityOrder(t *testing.T) {
	txs := []platform.Transaction{
		{Type: "skill_docker", Amount: 1000},
		{Type: "skill_go", Amount: 1000},
		{Type: "skill_prog", Amount: 1000},
	}

	aggregates, _ := AggregateSkills(txs)
	order := make([]string, 0, len(aggregates))
	for _, agg := range aggregates {
		order = append(order, agg.Type)
	}
	if !reflect.DeepEqual(order, []string{"prog", "go", "docker"}) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestAggregateSkills_IdempotentUnderReordering(t *testing.T) {
	txs := []platform.Transaction{
		{Type: "skill_go", Amount: 4000},
		{Type: "skill_js", Amount: 1500},
		{Type: "skill_go", Amount: 2000},
		{Type: "skill_misc", Amount: 10},
		{Type: "skill_unix", Amount: 700},
	}

	want, wantDropped := AggregateSkills(txs)
	for i := 0; i < 10; i++ {
		shuffled := make([]platform.Transaction, len(txs))
		copy(shuffled, txs)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, gotDropped := AggregateSkills(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("aggregates changed under reordering: %v vs %v", got, want)
		}
		if !reflect.DeepEqual(gotDropped, wantDropped) {
			t.Fatalf("dropped changed under reordering: %v vs %v", gotDropped, wantDropped)
		}
	}
}

func TestMonthlyXP_BucketsByCalendarMonth(t *testing.T) {
	txs := []platform.Transaction{
		{Amount: 5000, CreatedAt: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)},
		{Amount: 2500, CreatedAt: time.Date(2024, 1, 25, 8, 0, 0, 0, time.UTC)},
		{Amount: 10000, CreatedAt: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)},
	}

	buckets := MonthlyXP(txs)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Label != "Jan 2024" || buckets[0].XP != 7.5 {
		t.Fatalf("unexpected first bucket: %+v", buckets[0])
	}
	if buckets[1].Label != "Mar 2024" || buckets[1].XP != 10.0 {
		t.Fatalf("unexpected second bucket: %+v", buckets[1])
	}
	if !buckets[0].Month.Before(buckets[1].Month) {
		t.Fatalf("buckets not chronological")
	}
}

func TestMonthlyXP_SortsByCanonicalTimeNotLabel(t *testing.T) {
	// A sort on the display label would order "Apr 2024" before "Dec 2023".
	txs := []platform.Transaction{
		{Amount: 1000, CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 1000, CreatedAt: time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)},
	}

	buckets := MonthlyXP(txs)
	if buckets[0].Label != "Dec 2023" || buckets[1].Label != "Apr 2024" {
		t.Fatalf("unexpected order: %q, %q", buckets[0].Label, buckets[1].Label)
	}
}

func TestXPSeries_ScalesPerTransaction(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	txs := []platform.Transaction{
		{Amount: 1750, CreatedAt: created, Object: platform.NamedObject{Name: "go-reloaded"}},
	}

	series := XPSeries(txs)
	if len(series) != 1 {
		t.Fatalf("expected 1 point, got %d", len(series))
	}
	if series[0].XP != 1.75 || series[0].ObjectName != "go-reloaded" || !series[0].Date.Equal(created) {
		t.Fatalf("unexpected point: %+v", series[0])
	}
}

func TestTotalXP_PrefersServerAggregate(t *testing.T) {
	history := platform.XPHistory{
		Transactions: []platform.Transaction{{Amount: 1000}},
		AggregateXP:  125000,
		HasAggregate: true,
	}
	points, source := TotalXP(history)
	if points != 125.0 || source != TotalSourceServer {
		t.Fatalf("expected server aggregate 125.0, got %v from %s", points, source)
	}
}

func TestTotalXP_FallsBackToClientSum(t *testing.T) {
	history := platform.XPHistory{
		Transactions: []platform.Transaction{{Amount: 1000}, {Amount: 500}},
	}
	points, source := TotalXP(history)
	if points != 1.5 || source != TotalSourceClient {
		t.Fatalf("expected client sum 1.5, got %v from %s", points, source)
	}
}

func TestAuditSummary_Scenario(t *testing.T) {
	user := platform.User{AuditRatio: 2.5, TotalUp: 2_500_000, TotalDown: 1_000_000}

	stats := AuditSummary(user)
	if stats.Ratio != 2.5 {
		t.Fatalf("expected ratio 2.5, got %v", stats.Ratio)
	}
	if stats.DoneMB != 2.5 || stats.ReceivedMB != 1.0 {
		t.Fatalf("expected 2.5/1.0 MB, got %v/%v", stats.DoneMB, stats.ReceivedMB)
	}
	if stats.DoneBar != 100 || stats.ReceivedBar != 100 {
		t.Fatalf("expected both bars at 100, got %v/%v", stats.DoneBar, stats.ReceivedBar)
	}
}

func TestAuditSummary_RecomputesMissingRatio(t *testing.T) {
	user := platform.User{TotalUp: 500_000, TotalDown: 1_000_000}

	stats := AuditSummary(user)
	if stats.Ratio != 0.5 {
		t.Fatalf("expected recomputed ratio 0.5, got %v", stats.Ratio)
	}
	if stats.DoneBar != 50 {
		t.Fatalf("expected done bar 50, got %v", stats.DoneBar)
	}
}

func TestBytesToMB_Rounding(t *testing.T) {
	if got := BytesToMB(2_500_000); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if got := BytesToMB(1_234_567); got != 1.23 {
		t.Fatalf("expected 1.23, got %v", got)
	}
}

package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

func TestTopEntries_TiesBreakByFirstOccurrenceNotName(t *testing.T) {
	ships := NewTally[ShipBucket]()
	// Insertion order A, B, C, D with B and C tied on 9.
	ships.At("A").Count = 5
	ships.At("B").Count = 9
	ships.At("C").Count = 9
	ships.At("D").Count = 1
	got := topEntries(ships, func(b *ShipBucket) float64 { return float64(b.Count) })
	if len(got) != LeaderSize {
		t.Fatalf("expected top %d, got %#v", LeaderSize, got)
	}
	if got[0].Person != "B" || got[1].Person != "C" || got[2].Person != "A" {
		t.Fatalf("tie must resolve by insertion order: %#v", got)
	}
}

func TestTopEntries_TruncatesToThree(t *testing.T) {
	tally := NewTally[TimeBucket]()
	for i, p := range []string{"P1", "P2", "P3", "P4", "P5"} {
		tally.At(p).Hours = float64(10 * (i + 1))
	}
	got := topEntries(tally, func(b *TimeBucket) float64 { return b.Hours })
	if len(got) != 3 || got[0].Person != "P5" || got[2].Person != "P3" {
		t.Fatalf("expected P5,P4,P3: %#v", got)
	}
}

func TestReduce_TotalsSumAcrossSprints(t *testing.T) {
	sp1 := testSprint()
	sp2 := domain.Sprint{ID: 8, Name: "Sprint 8", StartDate: sp1.EndDate.Add(24 * time.Hour), EndDate: sp1.EndDate.Add(14 * 24 * time.Hour)}

	s1 := AggregateSprint(sp1, domain.SprintItems{
		Total:           2,
		AcceptanceReady: 1,
		Items: []domain.WorkItem{
			doneItem("ABC-1", statusEvent("Alice", sp1.StartDate, StatusTodo, StatusInProgress)),
			{Key: "ABC-2", Status: StatusInProgress, Worklogs: []domain.WorklogEntry{
				{Author: "Bob", StartedAt: sp1.StartDate.Add(time.Hour), Seconds: 3 * 3600},
			}},
		},
		MissingEstimates: []domain.EstimateGap{{Key: "ABC-2"}},
	})
	s2 := AggregateSprint(sp2, domain.SprintItems{
		Total:           1,
		AcceptanceReady: 1,
		Items: []domain.WorkItem{
			doneItem("ABC-3", statusEvent("Alice", sp2.StartDate, StatusTodo, StatusInProgress)),
		},
	})

	r := Reduce("DEV board", []*SprintSummary{s1, s2})
	if len(r.Sprints) != 2 || r.Sprints[0] != s1 || r.Sprints[1] != s2 {
		t.Fatalf("sprint order must be preserved")
	}
	tot := r.Totals
	if tot.TotalItems != 3 || tot.CompletedItems != 2 || tot.AcceptanceReady != 2 {
		t.Fatalf("totals wrong: %#v", tot)
	}
	if b := tot.Starts.Get("Alice"); b == nil || b.Completed != 2 || len(b.Keys) != 2 {
		t.Fatalf("Alice totals wrong: %#v", b)
	}
	if b := tot.Time.Get("Bob"); b == nil || b.Hours != 3 || b.Tier != TimeLow {
		t.Fatalf("hours must be re-derived on totals: %#v", b)
	}
	if len(tot.MissingEstimates) != 1 {
		t.Fatalf("missing estimates concatenate: %#v", tot.MissingEstimates)
	}
	if want := Percent(2, 3); tot.CompletionPct != want {
		t.Fatalf("expected completion %v, got %v", want, tot.CompletionPct)
	}
}

func TestReduce_FillsLeadersPerSprintAndOverall(t *testing.T) {
	s := AggregateSprint(testSprint(), domain.SprintItems{
		Total: 1,
		Items: []domain.WorkItem{
			doneItem("ABC-1", statusEvent("Alice", t0, StatusTodo, StatusInProgress)),
		},
	})
	r := Reduce("DEV board", []*SprintSummary{s})

	for _, metric := range []string{MetricHours, MetricCompleted, MetricReviewed, MetricShipped} {
		if _, ok := s.Leaders[metric]; !ok {
			t.Fatalf("sprint leaders missing metric %q", metric)
		}
		if _, ok := r.Leaders[metric]; !ok {
			t.Fatalf("overall leaders missing metric %q", metric)
		}
	}
	if lb := r.Leaders[MetricCompleted]; len(lb) == 0 || lb[0].Person != "Alice" || lb[0].Value != 1 {
		t.Fatalf("completed leaderboard wrong: %#v", lb)
	}
	if r.ID == uuid.Nil {
		t.Fatalf("report id must be set")
	}
}

package analytics

import (
	"testing"
	"time"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

func TestAnalyzeSpillover_StartBeforeSprintRecordsUnderStarter(t *testing.T) {
	sprintStart := t0.Add(20 * 24 * time.Hour)
	it := domain.WorkItem{Key: "ABC-10", Status: StatusInProgress, Changelog: []domain.ChangeEvent{
		statusEvent("Alice", t0, StatusTodo, StatusInProgress),
	}}
	person, spill := analyzeSpillover(it, sprintStart)
	if spill == nil {
		t.Fatalf("expected a spillover record")
	}
	if person != "Alice" {
		t.Fatalf("expected starter person, got %q", person)
	}
	if spill.AgeSprints != 2 || spill.Tier != TierRecent {
		t.Fatalf("20 days is 2 sprints, recent: got %#v", spill)
	}
	if !spill.Since.Equal(t0) {
		t.Fatalf("expected start moment %v, got %v", t0, spill.Since)
	}
}

func TestAnalyzeSpillover_NoStartFallsBackToEarliestEventUnderUnknown(t *testing.T) {
	sprintStart := t0.Add(30 * 24 * time.Hour)
	it := domain.WorkItem{Key: "ABC-11", Status: StatusTesting, Changelog: []domain.ChangeEvent{
		statusEvent("Bob", t0.Add(24*time.Hour), StatusInProgress, StatusPRReady),
		{Author: "Bob", At: t0, Changes: []domain.FieldChange{{Field: "assignee", From: "", To: "Bob"}}},
	}}
	person, spill := analyzeSpillover(it, sprintStart)
	if spill == nil || person != UnknownPerson {
		t.Fatalf("expected Unknown via proxy time, got %q %#v", person, spill)
	}
	if !spill.Since.Equal(t0) {
		t.Fatalf("proxy moment should be the earliest event, got %v", spill.Since)
	}
	if spill.AgeSprints != 3 || spill.Tier != TierModerate {
		t.Fatalf("30 days is 3 sprints, moderate: got %#v", spill)
	}
}

func TestAnalyzeSpillover_NoHistoryRecordsNothing(t *testing.T) {
	if _, spill := analyzeSpillover(domain.WorkItem{Key: "ABC-12"}, t0); spill != nil {
		t.Fatalf("no history means no spillover, got %#v", spill)
	}
}

func TestAnalyzeSpillover_StartInsideSprintRecordsNothing(t *testing.T) {
	sprintStart := t0.Add(-time.Hour)
	it := domain.WorkItem{Key: "ABC-13", Status: StatusInProgress, Changelog: []domain.ChangeEvent{
		statusEvent("Alice", t0, StatusTodo, StatusInProgress),
	}}
	if _, spill := analyzeSpillover(it, sprintStart); spill != nil {
		t.Fatalf("start after sprint begin is not spillover, got %#v", spill)
	}
}

func TestAgeSprints_PartialIterationsRoundUp(t *testing.T) {
	cases := []struct {
		days float64
		want int
	}{
		{1, 1},
		{13.5, 1},
		{14, 1},
		{14.04, 2}, // one hour past a full iteration
		{28, 2},
		{29, 3},
		{85, 7},
	}
	for _, c := range cases {
		since := t0.Add(-time.Duration(c.days * 24 * float64(time.Hour)))
		if got := ageSprints(since, t0); got != c.want {
			t.Fatalf("ageSprints(%v days) = %d, want %d", c.days, got, c.want)
		}
	}
}

func TestAgeTier_BoundariesPartition(t *testing.T) {
	cases := map[int]string{
		1:  TierRecent,
		2:  TierRecent,
		3:  TierModerate,
		4:  TierModerate,
		5:  TierOld,
		6:  TierOld,
		7:  TierCritical,
		12: TierCritical,
	}
	valid := map[string]bool{TierRecent: true, TierModerate: true, TierOld: true, TierCritical: true}
	for age, want := range cases {
		got := ageTier(age)
		if got != want {
			t.Fatalf("ageTier(%d) = %q, want %q", age, got, want)
		}
		if !valid[got] {
			t.Fatalf("ageTier(%d) produced an unknown tier %q", age, got)
		}
	}
}

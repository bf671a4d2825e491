package analytics

import (
	"math"
	"time"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

// Spillover age tiers, by sprints carried.
const (
	TierRecent   = "recent"
	TierModerate = "moderate"
	TierOld      = "old"
	TierCritical = "critical"
)

// SpilloverItem is one unfinished item that was already in flight before the
// analyzed sprint began.
type SpilloverItem struct {
	Key        string    `json:"key"`
	AgeSprints int       `json:"age_sprints"`
	Tier       string    `json:"tier"`
	Since      time.Time `json:"since"`
}

// analyzeSpillover decides whether an unfinished item predates the sprint and
// who carries it. The start moment comes from the starter predicates, run
// without the completed-items restriction; an item with history but no start
// transition falls back to its earliest event under UnknownPerson. Nothing is
// recorded when the moment does not precede sprintStart, or when the item has
// no history at all.
func analyzeSpillover(it domain.WorkItem, sprintStart time.Time) (string, *SpilloverItem) {
	person := UnknownPerson
	var since time.Time
	if m := findFirstTransition(it.Changelog, starter.primary, starter.fallback); m != nil {
		if m.Actor != "" {
			person = m.Actor
		}
		since = m.At
	} else if ev := earliestEvent(it.Changelog); ev != nil {
		since = ev.At
	} else {
		return "", nil
	}
	if !since.Before(sprintStart) {
		return "", nil
	}
	age := ageSprints(since, sprintStart)
	return person, &SpilloverItem{Key: it.Key, AgeSprints: age, Tier: ageTier(age), Since: since}
}

// ageSprints counts 14-day iterations between the start moment and the sprint
// start, any partial iteration rounding up.
func ageSprints(since, sprintStart time.Time) int {
	days := sprintStart.Sub(since).Hours() / 24
	return int(math.Ceil(days / sprintDays))
}

func ageTier(age int) string {
	switch {
	case age <= 2:
		return TierRecent
	case age <= 4:
		return TierModerate
	case age <= 6:
		return TierOld
	default:
		return TierCritical
	}
}

func earliestEvent(history []domain.ChangeEvent) *domain.ChangeEvent {
	var first *domain.ChangeEvent
	for i := range history {
		if first == nil || history[i].At.Before(first.At) {
			first = &history[i]
		}
	}
	return first
}

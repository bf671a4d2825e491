package analytics

import (
	"sort"
	"time"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

// transitionFn matches one recorded field change.
type transitionFn func(field, from, to string) bool

// transitionMatch is the earliest change satisfying a classifier predicate.
type transitionMatch struct {
	Actor   string
	At      time.Time
	Primary bool
}

// findFirstTransition scans the change history in timestamp order and returns
// the first change matching primary. Only when no primary match exists
// anywhere does a second full pass look for fallback. The input slice is
// never reordered; events with equal timestamps keep their source order.
func findFirstTransition(history []domain.ChangeEvent, primary, fallback transitionFn) *transitionMatch {
	if len(history) == 0 {
		return nil
	}
	ordered := make([]domain.ChangeEvent, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].At.Before(ordered[j].At) })

	if m := scanTransitions(ordered, primary, true); m != nil {
		return m
	}
	if fallback == nil {
		return nil
	}
	return scanTransitions(ordered, fallback, false)
}

func scanTransitions(ordered []domain.ChangeEvent, match transitionFn, primary bool) *transitionMatch {
	for _, ev := range ordered {
		for _, ch := range ev.Changes {
			if match(ch.Field, ch.From, ch.To) {
				return &transitionMatch{Actor: ev.Author, At: ev.At, Primary: primary}
			}
		}
	}
	return nil
}

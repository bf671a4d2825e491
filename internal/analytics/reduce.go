package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Reduce folds per-sprint summaries, in the order given, into the final
// report: grand totals plus top-3 leaderboards for every sprint and for the
// whole window. The input summaries are only written to fill their Leaders.
func Reduce(board string, sprints []*SprintSummary) *Report {
	totals := &SprintSummary{
		Time:    NewTally[TimeBucket](),
		Starts:  NewTally[StartBucket](),
		Reviews: NewTally[ReviewBucket](),
		Ships:   NewTally[ShipBucket](),
		Spill:   NewTally[SpillBucket](),
	}
	for _, s := range sprints {
		totals.merge(s)
		s.Leaders = leaderboards(s)
	}
	totals.CompletionPct = Percent(totals.CompletedItems, totals.TotalItems)
	totals.finishTime()
	return &Report{
		ID:          uuid.New(),
		Board:       board,
		GeneratedAt: time.Now().UTC(),
		Sprints:     sprints,
		Totals:      totals,
		Leaders:     leaderboards(totals),
	}
}

// merge folds one sprint into the totals: counts add, key and item lists
// concatenate in sprint order, tier counts union.
func (s *SprintSummary) merge(o *SprintSummary) {
	s.TotalItems += o.TotalItems
	s.CompletedItems += o.CompletedItems
	s.AcceptanceReady += o.AcceptanceReady
	s.MissingEstimates = append(s.MissingEstimates, o.MissingEstimates...)
	for _, p := range o.Time.Keys() {
		s.Time.At(p).Seconds += o.Time.Get(p).Seconds
	}
	for _, p := range o.Starts.Keys() {
		ob, b := o.Starts.Get(p), s.Starts.At(p)
		b.Started += ob.Started
		b.Completed += ob.Completed
		b.Keys = append(b.Keys, ob.Keys...)
	}
	for _, p := range o.Reviews.Keys() {
		ob, b := o.Reviews.Get(p), s.Reviews.At(p)
		b.Count += ob.Count
		b.Keys = append(b.Keys, ob.Keys...)
	}
	for _, p := range o.Ships.Keys() {
		ob, b := o.Ships.Get(p), s.Ships.At(p)
		b.Count += ob.Count
		b.Keys = append(b.Keys, ob.Keys...)
	}
	for _, p := range o.Spill.Keys() {
		ob, b := o.Spill.Get(p), s.Spill.At(p)
		b.Count += ob.Count
		b.AgeSprints += ob.AgeSprints
		b.StaleWeeks += ob.StaleWeeks
		if b.TierCounts == nil {
			b.TierCounts = make(map[string]int)
		}
		for tier, n := range ob.TierCounts {
			b.TierCounts[tier] += n
		}
		b.Items = append(b.Items, ob.Items...)
	}
}

func leaderboards(s *SprintSummary) map[string][]LeaderboardEntry {
	return map[string][]LeaderboardEntry{
		MetricHours:     topEntries(s.Time, func(b *TimeBucket) float64 { return b.Hours }),
		MetricCompleted: topEntries(s.Starts, func(b *StartBucket) float64 { return float64(b.Completed) }),
		MetricReviewed:  topEntries(s.Reviews, func(b *ReviewBucket) float64 { return float64(b.Count) }),
		MetricShipped:   topEntries(s.Ships, func(b *ShipBucket) float64 { return float64(b.Count) }),
	}
}

// topEntries ranks a tally by value descending. The stable sort keeps tied
// values in tally insertion order, so ties go to whoever appeared first.
func topEntries[V any](t *Tally[V], value func(*V) float64) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, t.Len())
	for _, person := range t.Keys() {
		entries = append(entries, LeaderboardEntry{Person: person, Value: value(t.Get(person))})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
	if len(entries) > LeaderSize {
		entries = entries[:LeaderSize]
	}
	return entries
}

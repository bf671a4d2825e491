package analytics

import (
	"time"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

// AggregateSprint runs attribution, spillover and worklog rollups over one
// sprint's fetched items and assembles its summary. Items are processed in
// the order given and never modified; person buckets appear in the order
// people first show up.
func AggregateSprint(sprint domain.Sprint, items domain.SprintItems) *SprintSummary {
	s := &SprintSummary{
		Sprint:           sprint,
		TotalItems:       items.Total,
		AcceptanceReady:  items.AcceptanceReady,
		Time:             NewTally[TimeBucket](),
		Starts:           NewTally[StartBucket](),
		Reviews:          NewTally[ReviewBucket](),
		Ships:            NewTally[ShipBucket](),
		Spill:            NewTally[SpillBucket](),
		MissingEstimates: append([]domain.EstimateGap(nil), items.MissingEstimates...),
	}
	for _, it := range items.Items {
		s.tallyItem(it)
		s.tallyWorklogs(it, sprint.StartDate, sprint.EndDate)
	}
	s.CompletionPct = Percent(s.CompletedItems, s.TotalItems)
	s.finishTime()
	return s
}

func (s *SprintSummary) tallyItem(it domain.WorkItem) {
	if starter.applies(it) {
		a := starter.classify(it)
		b := s.Starts.At(a.Person)
		b.Started++
		b.Completed++
		b.Keys = append(b.Keys, markKey(it.Key, a.Certain))
		s.CompletedItems++
	}
	if reviewer.applies(it) {
		a := reviewer.classify(it)
		b := s.Reviews.At(a.Person)
		b.Count++
		b.Keys = append(b.Keys, markKey(it.Key, a.Certain))
	}
	if shipper.applies(it) {
		a := shipper.classify(it)
		b := s.Ships.At(a.Person)
		b.Count++
		b.Keys = append(b.Keys, markKey(it.Key, a.Certain))
	}
	if !it.Done() {
		if person, spill := analyzeSpillover(it, s.Sprint.StartDate); spill != nil {
			b := s.Spill.At(person)
			b.Count++
			b.AgeSprints += spill.AgeSprints
			b.StaleWeeks += spill.AgeSprints * weeksPerSprint
			if b.TierCounts == nil {
				b.TierCounts = make(map[string]int)
			}
			b.TierCounts[spill.Tier]++
			b.Items = append(b.Items, *spill)
		}
	}
}

// tallyWorklogs adds entries logged inside the sprint window, both ends
// inclusive.
func (s *SprintSummary) tallyWorklogs(it domain.WorkItem, from, to time.Time) {
	for _, wl := range it.Worklogs {
		if wl.StartedAt.Before(from) || wl.StartedAt.After(to) {
			continue
		}
		s.Time.At(wl.Author).Seconds += wl.Seconds
	}
}

// finishTime derives hours and display tiers once all seconds are summed.
func (s *SprintSummary) finishTime() {
	for _, person := range s.Time.Keys() {
		b := s.Time.Get(person)
		b.Hours = Hours(b.Seconds)
		b.Tier = HoursTier(b.Hours)
	}
}

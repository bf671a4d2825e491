package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

// StartBucket counts items one person took into progress. Completed mirrors
// Started because starter attribution only runs on finished work; Keys are
// the completed item keys, starred when the attribution was uncertain.
type StartBucket struct {
	Started   int      `json:"started"`
	Completed int      `json:"completed"`
	Keys      []string `json:"keys"`
}

type ReviewBucket struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

type ShipBucket struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

type TimeBucket struct {
	Seconds int     `json:"seconds"`
	Hours   float64 `json:"hours"`
	Tier    string  `json:"tier"`
}

// SpillBucket rolls up one person's carried-over items: how many, their
// summed age in sprints, the same staleness in week-equivalents, and how the
// items split across age tiers.
type SpillBucket struct {
	Count      int             `json:"count"`
	AgeSprints int             `json:"age_sprints"`
	StaleWeeks int             `json:"stale_weeks"`
	TierCounts map[string]int  `json:"tier_counts"`
	Items      []SpilloverItem `json:"items"`
}

// Leaderboard metric names, fixed keys in summaries and reports.
const (
	MetricHours     = "hours_logged"
	MetricCompleted = "items_completed"
	MetricReviewed  = "items_reviewed"
	MetricShipped   = "items_shipped"
)

// LeaderSize caps every leaderboard.
const LeaderSize = 3

type LeaderboardEntry struct {
	Person string  `json:"person"`
	Value  float64 `json:"value"`
}

// SprintSummary is the full attribution rollup for one sprint. Built once by
// AggregateSprint; Reduce only reads it, except for filling Leaders.
type SprintSummary struct {
	Sprint           domain.Sprint                 `json:"sprint,omitzero"`
	TotalItems       int                           `json:"total_items"`
	CompletedItems   int                           `json:"completed_items"`
	AcceptanceReady  int                           `json:"acceptance_ready"`
	CompletionPct    float64                       `json:"completion_pct"`
	Time             *Tally[TimeBucket]            `json:"time_logged"`
	Starts           *Tally[StartBucket]           `json:"starts"`
	Reviews          *Tally[ReviewBucket]          `json:"reviews"`
	Ships            *Tally[ShipBucket]            `json:"ships"`
	Spill            *Tally[SpillBucket]           `json:"spillover"`
	MissingEstimates []domain.EstimateGap          `json:"missing_estimates"`
	Leaders          map[string][]LeaderboardEntry `json:"leaders,omitempty"`
}

// Report is the cross-sprint output: every analyzed sprint in input order,
// grand totals in the same shape, and the overall leaderboards.
type Report struct {
	ID          uuid.UUID                     `json:"id"`
	Board       string                        `json:"board"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Sprints     []*SprintSummary              `json:"sprints"`
	Totals      *SprintSummary                `json:"totals"`
	Leaders     map[string][]LeaderboardEntry `json:"leaders"`
}

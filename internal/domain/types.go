package domain

import (
    "errors"
    "strings"
    "time"
)

var (
    ErrBoardNotFound  = errors.New("board not found")
    ErrSprintNotFound = errors.New("sprint not found")
)

type Sprint struct {
    ID        int64     `json:"id"`
    Name      string    `json:"name"`
    State     string    `json:"state"`
    StartDate time.Time `json:"start_date"`
    EndDate   time.Time `json:"end_date"`
    Goal      string    `json:"goal,omitempty"`
}

type WorkItem struct {
    Key             string
    Type            string
    Assignee        string
    Status          string
    CreatedAt       *time.Time
    DoneAt          *time.Time
    EstimateSeconds *int64
    Worklogs        []WorklogEntry
    Changelog       []ChangeEvent
}

// ChangeEvent is one changelog entry: a single actor changing one or more
// fields at the same instant. Order inside Changes follows the source payload.
type ChangeEvent struct {
    Author  string
    At      time.Time
    Changes []FieldChange
}

type FieldChange struct {
    Field string
    From  string
    To    string
}

type WorklogEntry struct {
    Author    string
    StartedAt time.Time
    Seconds   int
}

type EstimateGap struct {
    Key      string  `json:"key"`
    Assignee *string `json:"assignee"`
}

// SprintItems is the result of fetching one sprint's contents upstream.
type SprintItems struct {
    Items            []WorkItem
    Total            int
    AcceptanceReady  int
    MissingEstimates []EstimateGap
}

func (w WorkItem) Done() bool {
    return w.DoneAt != nil || strings.EqualFold(w.Status, "Done")
}

// ReachedStatus reports whether the item is currently in the named status or
// ever transitioned into it.
func (w WorkItem) ReachedStatus(name string) bool {
    if strings.EqualFold(w.Status, name) { return true }
    for _, ev := range w.Changelog {
        for _, ch := range ev.Changes {
            if strings.EqualFold(ch.Field, "status") && strings.EqualFold(ch.To, name) { return true }
        }
    }
    return false
}

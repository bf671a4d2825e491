/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "time"

    "github.com/michaelbontyes/dev-board-v2/internal/analytics"
    "github.com/michaelbontyes/dev-board-v2/internal/domain"
)

const pageSize = 50

// fetchSprints pages the board's sprints in the configured states and keeps
// the most recent window, oldest first.
func (s *Service) fetchSprints(ctx context.Context, boardID int64) ([]domain.Sprint, error) {
    var all []domain.Sprint
    startAt := 0
    for {
        page, err := s.jira.Sprints(ctx, boardID, s.cfg.SprintState, startAt, pageSize)
        if err != nil { return nil, err }
        vals, _ := page["values"].([]any)
        if len(vals) == 0 { break }
        for _, v0 := range vals {
            m, _ := v0.(map[string]any)
            if m == nil { continue }
            all = append(all, mapSprint(m))
        }
        if last, ok := page["isLast"].(bool); ok && last { break }
        if len(vals) < pageSize { break }
        startAt += len(vals)
    }
    if len(all) == 0 { return nil, fmt.Errorf("board %d: %w", boardID, domain.ErrSprintNotFound) }
    if n := s.cfg.SprintCount; n > 0 && len(all) > n { all = all[len(all)-n:] }
    return all, nil
}

// fetchSprintItems pulls every issue in the sprint with its full changelog
// and worklogs, then derives the sprint-level counters: acceptance-ready is
// "ever reached UAT Ready", the estimate gaps come straight from the fetched
// fields and are never re-derived downstream.
func (s *Service) fetchSprintItems(ctx context.Context, sp domain.Sprint) (domain.SprintItems, error) {
    var out domain.SprintItems
    startAt := 0
    for {
        page, err := s.jira.SprintIssues(ctx, sp.ID, startAt, pageSize)
        if err != nil { return out, err }
        arr, _ := page["issues"].([]any)
        if len(arr) == 0 { break }
        for _, it0 := range arr {
            im, _ := it0.(map[string]any)
            if im == nil { continue }
            it, err := s.mapWorkItem(ctx, im)
            if err != nil { return out, err }
            out.Items = append(out.Items, it)
        }
        startAt += len(arr)
        if t := int(num64(page["total"])); t > 0 && startAt >= t { break }
        if len(arr) < pageSize { break }
    }
    out.Total = len(out.Items)
    for _, it := range out.Items {
        if it.ReachedStatus(analytics.StatusUATReady) { out.AcceptanceReady++ }
        if it.EstimateSeconds == nil {
            gap := domain.EstimateGap{Key: it.Key}
            if it.Assignee != "" { a := it.Assignee; gap.Assignee = &a }
            out.MissingEstimates = append(out.MissingEstimates, gap)
        }
    }
    return out, nil
}

func (s *Service) mapWorkItem(ctx context.Context, im map[string]any) (domain.WorkItem, error) {
    it := domain.WorkItem{Key: toStrAny(im["key"])}
    fields, _ := im["fields"].(map[string]any)
    if fields == nil { return it, fmt.Errorf("issue %s: no fields in payload", it.Key) }
    if tp, ok := fields["issuetype"].(map[string]any); ok { it.Type = toStrAny(tp["name"]) }
    if as, ok := fields["assignee"].(map[string]any); ok { it.Assignee = toStrAny(as["displayName"]) }
    if st, ok := fields["status"].(map[string]any); ok { it.Status = toStrAny(st["name"]) }
    it.CreatedAt = parseTimeUTC(fields["created"])
    it.DoneAt = parseTimeUTC(fields["resolutiondate"])
    if v, ok := fields["timeoriginalestimate"].(float64); ok { est := int64(v); it.EstimateSeconds = &est }

    hist, err := s.fetchChangelog(ctx, it.Key, im)
    if err != nil { return it, err }
    it.Changelog = hist
    wls, err := s.fetchWorklogs(ctx, it.Key, fields)
    if err != nil { return it, err }
    it.Worklogs = wls
    return it, nil
}

// fetchChangelog reads the histories embedded by expand=changelog and pages
// the rest through the changelog endpoint when the embed was truncated.
func (s *Service) fetchChangelog(ctx context.Context, key string, im map[string]any) ([]domain.ChangeEvent, error) {
    var out []domain.ChangeEvent
    have := 0
    total := 0
    if ch, ok := im["changelog"].(map[string]any); ok {
        total = int(num64(ch["total"]))
        if hs, ok := ch["histories"].([]any); ok {
            for _, h0 := range hs {
                if ev, ok := mapChangeEvent(h0); ok { out = append(out, ev) }
                have++
            }
        }
    }
    if total <= have { return out, nil }
    startAt := have
    for {
        page, err := s.jira.Changelog(ctx, key, startAt, 100)
        if err != nil { return nil, err }
        var vals []any
        if vv, ok := page["values"].([]any); ok { vals = vv } else if vv, ok := page["histories"].([]any); ok { vals = vv }
        if len(vals) == 0 { break }
        for _, h0 := range vals {
            if ev, ok := mapChangeEvent(h0); ok { out = append(out, ev) }
        }
        startAt += len(vals)
        if t := int(num64(page["total"])); t > 0 && startAt >= t { break }
    }
    return out, nil
}

// mapChangeEvent flattens one history entry into a single-actor event. Field
// order inside the entry is preserved.
func mapChangeEvent(v any) (domain.ChangeEvent, bool) {
    hv, _ := v.(map[string]any)
    if hv == nil { return domain.ChangeEvent{}, false }
    ev := domain.ChangeEvent{}
    if a, ok := hv["author"].(map[string]any); ok { ev.Author = toStrAny(a["displayName"]) }
    if at := parseTimeUTC(hv["created"]); at != nil { ev.At = *at }
    items, _ := hv["items"].([]any)
    for _, it0 := range items {
        itm, _ := it0.(map[string]any)
        if itm == nil { continue }
        ev.Changes = append(ev.Changes, domain.FieldChange{
            Field: toStrAny(itm["field"]),
            From:  toStrAny(itm["fromString"]),
            To:    toStrAny(itm["toString"]),
        })
    }
    if len(ev.Changes) == 0 { return domain.ChangeEvent{}, false }
    return ev, true
}

func (s *Service) fetchWorklogs(ctx context.Context, key string, fields map[string]any) ([]domain.WorklogEntry, error) {
    var out []domain.WorklogEntry
    have := 0
    total := 0
    if wl, ok := fields["worklog"].(map[string]any); ok {
        total = int(num64(wl["total"]))
        if warr, ok := wl["worklogs"].([]any); ok {
            for _, w0 := range warr {
                if e, ok := mapWorklog(w0); ok { out = append(out, e) }
                have++
            }
        }
    }
    if total <= have { return out, nil }
    startAt := have
    for {
        page, err := s.jira.Worklogs(ctx, key, startAt, 100)
        if err != nil { return nil, err }
        warr, _ := page["worklogs"].([]any)
        if len(warr) == 0 { break }
        for _, w0 := range warr {
            if e, ok := mapWorklog(w0); ok { out = append(out, e) }
        }
        startAt += len(warr)
        if t := int(num64(page["total"])); t > 0 && startAt >= t { break }
    }
    return out, nil
}

func mapWorklog(v any) (domain.WorklogEntry, bool) {
    wi, _ := v.(map[string]any)
    if wi == nil { return domain.WorklogEntry{}, false }
    e := domain.WorklogEntry{}
    if a, ok := wi["author"].(map[string]any); ok { e.Author = toStrAny(a["displayName"]) }
    started := parseTimeUTC(wi["started"])
    if started == nil { return e, false }
    e.StartedAt = *started
    if sec, ok := wi["timeSpentSeconds"].(float64); ok { e.Seconds = int(sec) }
    return e, true
}

func mapSprint(m map[string]any) domain.Sprint {
    sp := domain.Sprint{
        ID:    num64(m["id"]),
        Name:  toStrAny(m["name"]),
        State: toStrAny(m["state"]),
        Goal:  toStrAny(m["goal"]),
    }
    if t := parseTimeUTC(m["startDate"]); t != nil { sp.StartDate = *t }
    if t := parseTimeUTC(m["endDate"]); t != nil { sp.EndDate = *t }
    return sp
}

// ---- mapping helpers ----

func parseTimeUTC(v any) *time.Time {
    s, _ := v.(string)
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700", "2006-01-02"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC(); return &tt
        }
    }
    return nil
}

func toStrAny(v any) string {
    if v == nil { return "" }
    if s, ok := v.(string); ok { return s }
    return fmt.Sprintf("%v", v)
}

func num64(v any) int64 {
    switch t := v.(type) {
    case float64:
        return int64(t)
    case int64:
        return t
    case int:
        return int64(t)
    }
    return 0
}

/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "fmt"
    "strings"

    "github.com/michaelbontyes/dev-board-v2/internal/analytics"
)

// esc escapes MarkdownV2 special characters.
func esc(in string) string {
    repl := []string{"_","\\_","*","\\*","[","\\[","]","\\]","(","\\(",")","\\)","~","\\~","`","\\`",">","\\>","#","\\#","+","\\+","-","\\-","=","\\=","|","\\|","{","\\{","}","\\}",".","\\.","!","\\!"}
    for i := 0; i < len(repl); i+=2 { in = strings.ReplaceAll(in, repl[i], repl[i+1]) }
    return in
}

// renderDigest builds the MarkdownV2 digest for one report: a block per
// sprint, the cross-sprint totals, the overall leaderboards and, when any
// attribution fell back to an uncertain match, the marker footnote.
func renderDigest(rep *analytics.Report) string {
    b := &strings.Builder{}
    fmt.Fprintf(b, "*%s*\n", esc("Sprint report: "+rep.Board))
    fmt.Fprintf(b, "_%s_\n", esc(rep.GeneratedAt.Format("2006-01-02 15:04 MST")))
    for _, sp := range rep.Sprints { writeSprint(b, sp) }
    if rep.Totals != nil {
        fmt.Fprintf(b, "\n*%s*\n", esc("All sprints"))
        writeCounters(b, rep.Totals)
        writeTallies(b, rep.Totals)
    }
    writeLeaders(b, "Overall leaders", rep.Leaders)
    if hasUncertain(rep) { fmt.Fprintf(b, "\n%s\n", esc("* attribution uncertain")) }
    return b.String()
}

func writeSprint(b *strings.Builder, s *analytics.SprintSummary) {
    fmt.Fprintf(b, "\n*%s*", esc(s.Sprint.Name))
    if !s.Sprint.StartDate.IsZero() && !s.Sprint.EndDate.IsZero() {
        fmt.Fprintf(b, " %s", esc(fmt.Sprintf("(%s to %s)", s.Sprint.StartDate.Format("Jan 2"), s.Sprint.EndDate.Format("Jan 2"))))
    }
    b.WriteString("\n")
    writeCounters(b, s)
    writeTallies(b, s)
    writeLeaders(b, "Leaders", s.Leaders)
}

func writeCounters(b *strings.Builder, s *analytics.SprintSummary) {
    fmt.Fprintf(b, "%s\n", esc(fmt.Sprintf("Completed: %d/%d (%.0f%%)", s.CompletedItems, s.TotalItems, s.CompletionPct)))
    if s.AcceptanceReady > 0 {
        fmt.Fprintf(b, "%s\n", esc(fmt.Sprintf("Acceptance ready: %d", s.AcceptanceReady)))
    }
    if n := len(s.MissingEstimates); n > 0 {
        keys := make([]string, 0, n)
        for _, g := range s.MissingEstimates { keys = append(keys, g.Key) }
        fmt.Fprintf(b, "%s\n", esc(fmt.Sprintf("Missing estimates: %d (%s)", n, strings.Join(keys, ", "))))
    }
}

func writeTallies(b *strings.Builder, s *analytics.SprintSummary) {
    if s.Starts.Len() > 0 {
        parts := make([]string, 0, s.Starts.Len())
        for _, p := range s.Starts.Keys() {
            v := s.Starts.Get(p)
            parts = append(parts, fmt.Sprintf("%s %d (%s)", p, v.Started, strings.Join(v.Keys, ", ")))
        }
        fmt.Fprintf(b, "%s\n", esc("Started: "+strings.Join(parts, "; ")))
    }
    if s.Reviews.Len() > 0 {
        parts := make([]string, 0, s.Reviews.Len())
        for _, p := range s.Reviews.Keys() {
            v := s.Reviews.Get(p)
            parts = append(parts, fmt.Sprintf("%s %d (%s)", p, v.Count, strings.Join(v.Keys, ", ")))
        }
        fmt.Fprintf(b, "%s\n", esc("Reviewed: "+strings.Join(parts, "; ")))
    }
    if s.Ships.Len() > 0 {
        parts := make([]string, 0, s.Ships.Len())
        for _, p := range s.Ships.Keys() {
            v := s.Ships.Get(p)
            parts = append(parts, fmt.Sprintf("%s %d (%s)", p, v.Count, strings.Join(v.Keys, ", ")))
        }
        fmt.Fprintf(b, "%s\n", esc("Shipped: "+strings.Join(parts, "; ")))
    }
    if s.Time.Len() > 0 {
        parts := make([]string, 0, s.Time.Len())
        for _, p := range s.Time.Keys() {
            v := s.Time.Get(p)
            parts = append(parts, fmt.Sprintf("%s %.1fh %s", p, v.Hours, v.Tier))
        }
        fmt.Fprintf(b, "%s\n", esc("Hours: "+strings.Join(parts, "; ")))
    }
    if s.Spill.Len() > 0 {
        parts := make([]string, 0, s.Spill.Len())
        for _, p := range s.Spill.Keys() {
            v := s.Spill.Get(p)
            its := make([]string, 0, len(v.Items))
            for _, it := range v.Items { its = append(its, it.Key+" "+it.Tier) }
            parts = append(parts, fmt.Sprintf("%s %d, age %d sprints (%s)", p, v.Count, v.AgeSprints, strings.Join(its, ", ")))
        }
        fmt.Fprintf(b, "%s\n", esc("Spillover: "+strings.Join(parts, "; ")))
    }
}

func writeLeaders(b *strings.Builder, title string, leaders map[string][]analytics.LeaderboardEntry) {
    if len(leaders) == 0 { return }
    fmt.Fprintf(b, "%s\n", esc(title+":"))
    for _, m := range []string{analytics.MetricHours, analytics.MetricCompleted, analytics.MetricReviewed, analytics.MetricShipped} {
        entries := leaders[m]
        if len(entries) == 0 { continue }
        parts := make([]string, 0, len(entries))
        for _, e := range entries {
            if m == analytics.MetricHours {
                parts = append(parts, fmt.Sprintf("%s %.1fh", e.Person, e.Value))
            } else {
                parts = append(parts, fmt.Sprintf("%s %.0f", e.Person, e.Value))
            }
        }
        fmt.Fprintf(b, "%s\n", esc("  "+metricLabel(m)+": "+strings.Join(parts, ", ")))
    }
}

func metricLabel(m string) string {
    switch m {
    case analytics.MetricHours: return "Hours"
    case analytics.MetricCompleted: return "Completed"
    case analytics.MetricReviewed: return "Reviewed"
    case analytics.MetricShipped: return "Shipped"
    }
    return m
}

// hasUncertain reports whether any attribution in the report carries the
// fallback marker.
func hasUncertain(rep *analytics.Report) bool {
    for _, s := range rep.Sprints {
        for _, p := range s.Starts.Keys() {
            for _, k := range s.Starts.Get(p).Keys { if strings.HasSuffix(k, analytics.UncertainMark) { return true } }
        }
        for _, p := range s.Reviews.Keys() {
            for _, k := range s.Reviews.Get(p).Keys { if strings.HasSuffix(k, analytics.UncertainMark) { return true } }
        }
        for _, p := range s.Ships.Keys() {
            for _, k := range s.Ships.Get(p).Keys { if strings.HasSuffix(k, analytics.UncertainMark) { return true } }
        }
    }
    return false
}

// chunkText splits text into chunks of up to max runes, attempting to break on line boundaries.
func chunkText(s string, max int) []string {
    if max <= 0 { return []string{s} }
    var chunks []string
    lines := strings.Split(s, "\n")
    cur := ""
    curlen := 0
    for _, ln := range lines {
        rl := len([]rune(ln))
        // If a single line exceeds max, hard-split the line
        if rl > max {
            // flush current first
            if curlen > 0 { chunks = append(chunks, cur); cur = ""; curlen = 0 }
            r := []rune(ln)
            for i := 0; i < rl; i += max {
                j := i + max
                if j > rl { j = rl }
                chunks = append(chunks, string(r[i:j]))
            }
            continue
        }
        // Add to current chunk if fits
        // account for newline when appending to non-empty cur
        extra := rl
        if curlen > 0 { extra += 1 }
        if curlen+extra > max {
            chunks = append(chunks, cur)
            cur = ln
            curlen = rl
        } else {
            if curlen == 0 { cur = ln; curlen = rl } else { cur += "\n" + ln; curlen += extra }
        }
    }
    if curlen > 0 { chunks = append(chunks, cur) }
    if len(chunks) == 0 { chunks = []string{""} }
    return chunks
}

/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"

    "github.com/michaelbontyes/dev-board-v2/internal/analytics"
    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/michaelbontyes/dev-board-v2/internal/domain"
    "github.com/michaelbontyes/dev-board-v2/internal/repo"
    "github.com/rs/zerolog"
)

type JiraClient interface {
    ResolveBoardByName(ctx context.Context, name string) (int64, string, error)
    Sprints(ctx context.Context, boardID int64, state string, startAt, max int) (map[string]any, error)
    SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (map[string]any, error)
    Changelog(ctx context.Context, key string, startAt, max int) (map[string]any, error)
    Worklogs(ctx context.Context, key string, startAt, max int) (map[string]any, error)
}

type LLM interface {
    Summarize(ctx context.Context, payload map[string]any) (string, error)
}

type Notifier interface {
    SendMessage(ctx context.Context, chatID int64, text string) error
    SendMessagePlain(ctx context.Context, chatID int64, text string) error
    SendMarkdownV2(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg  config.Config
    log  zerolog.Logger
    repo *repo.Repository
    jira JiraClient
    llm  LLM
    tg   Notifier
}

func New(cfg config.Config, log zerolog.Logger, r *repo.Repository, jira JiraClient, llm LLM, tg Notifier) *Service {
    return &Service{cfg: cfg, log: log, repo: r, jira: jira, llm: llm, tg: tg}
}

// RunStats is the accounting for one report build, recorded on job runs.
type RunStats struct {
    Board   string
    Sprints int
    Items   int
}

// BuildReport resolves the configured board, fetches its recent sprints and
// computes the full attribution report. Any upstream failure aborts the whole
// run; nothing partial is returned.
func (s *Service) BuildReport(ctx context.Context) (*analytics.Report, RunStats, error) {
    var st RunStats
    boardID, boardName, err := s.jira.ResolveBoardByName(ctx, s.cfg.JiraBoardName)
    if err != nil { return nil, st, err }
    st.Board = boardName
    sprints, err := s.fetchSprints(ctx, boardID)
    if err != nil { return nil, st, err }
    summaries := make([]*analytics.SprintSummary, 0, len(sprints))
    for _, sp := range sprints {
        items, err := s.fetchSprintItems(ctx, sp)
        if err != nil { return nil, st, fmt.Errorf("sprint %q: %w", sp.Name, err) }
        s.mirrorSprint(ctx, sp, items)
        st.Sprints++
        st.Items += items.Total
        summaries = append(summaries, analytics.AggregateSprint(sp, items))
    }
    rep := analytics.Reduce(boardName, summaries)
    s.log.Info().Str("board", boardName).Int("sprints", st.Sprints).Int("items", st.Items).Msg("report built")
    return rep, st, nil
}

// mirrorSprint persists the raw fetch result for audit. Mirror failures are
// logged and never fail the run.
func (s *Service) mirrorSprint(ctx context.Context, sp domain.Sprint, items domain.SprintItems) {
    if s.repo == nil { return }
    if err := s.repo.UpsertSprint(ctx, sp); err != nil {
        s.log.Error().Err(err).Int64("sprint", sp.ID).Msg("mirror: upsert sprint failed")
        return
    }
    ids := make([]int64, 0, len(items.Items))
    for _, it := range items.Items {
        id, err := s.repo.UpsertWorkItem(ctx, it)
        if err != nil { s.log.Error().Err(err).Str("key", it.Key).Msg("mirror: upsert item failed"); continue }
        ids = append(ids, id)
        if err := s.repo.BulkInsertChangeEvents(ctx, id, it.Changelog); err != nil {
            s.log.Error().Err(err).Str("key", it.Key).Msg("mirror: insert change events failed")
        }
        if err := s.repo.BulkInsertWorklogs(ctx, id, it.Worklogs); err != nil {
            s.log.Error().Err(err).Str("key", it.Key).Msg("mirror: insert worklogs failed")
        }
    }
    if err := s.repo.LinkSprintItems(ctx, sp.ID, ids); err != nil {
        s.log.Error().Err(err).Int64("sprint", sp.ID).Msg("mirror: link items failed")
    }
}

// RunDigest builds the report and delivers the rendered digest to every
// configured chat, with an optional model narrative appended. One job_runs row
// records the outcome either way.
func (s *Service) RunDigest(ctx context.Context) error {
    runID, err := s.repo.StartJobRun(ctx, s.cfg.JiraBoardName)
    if err != nil { s.log.Error().Err(err).Msg("start job run failed") }
    s.log.Info().Str("board", s.cfg.JiraBoardName).Msg("digest: start")
    var st RunStats
    var runErr error
    defer func(){
        if runID != 0 {
            _ = s.repo.FinishJobRun(ctx, runID, st.Sprints, st.Items, runErr == nil, errString(runErr))
        }
    }()
    var rep *analytics.Report
    rep, st, runErr = s.BuildReport(ctx)
    if runErr != nil { return runErr }

    for _, part := range chunkText(renderDigest(rep), 3800) { s.broadcast(ctx, part) }
    if n := s.narrative(ctx, rep); n != "" {
        for _, part := range chunkText(n, 3800) { s.broadcastPlain(ctx, part) }
    }
    s.log.Info().Int("sprints", st.Sprints).Int("items", st.Items).Msg("digest: done")
    return nil
}

// RunOnDemandReport builds a fresh report and sends the digest to one chat.
func (s *Service) RunOnDemandReport(ctx context.Context, chatID int64) error {
    if chatID == 0 { return nil }
    rep, _, err := s.BuildReport(ctx)
    if err != nil {
        _ = s.tg.SendMessagePlain(ctx, chatID, "Report failed: "+err.Error())
        return err
    }
    for _, part := range chunkText(renderDigest(rep), 3800) {
        if err := s.tg.SendMarkdownV2(ctx, chatID, part); err != nil { return err }
    }
    return nil
}

// SendHelp replies with bot capabilities and commands.
func (s *Service) SendHelp(ctx context.Context, chatID int64) error {
    if chatID == 0 { return nil }
    help := esc("Dev Board Bot") + "\n" +
        esc("Sprint attribution reports for the configured Jira board.") + "\n\n" +
        esc("Commands:") + "\n" +
        esc("- /report — build and send the current report") + "\n" +
        esc("- /help — this message")
    return s.tg.SendMarkdownV2(ctx, chatID, help)
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
    return s.repo.GetLastRun(ctx)
}

// narrative asks the model for a short coaching read of the report. Returns
// "" when no model is configured or the call fails; the digest never waits on
// a broken narrative.
func (s *Service) narrative(ctx context.Context, rep *analytics.Report) string {
    if s.llm == nil || strings.TrimSpace(s.cfg.OpenAIKey) == "" { return "" }
    payload := reportPayload(rep)
    if payload == nil { return "" }
    cctx, cancel := context.WithTimeout(ctx, s.cfg.OpenAITimeout)
    defer cancel()
    text, err := s.llm.Summarize(cctx, redactPII(payload))
    if err != nil { s.log.Error().Err(err).Msg("llm summarize failed"); return "" }
    return text
}

// reportPayload round-trips the report through JSON into a generic map so the
// redaction pass can walk it.
func reportPayload(rep *analytics.Report) map[string]any {
    b, err := json.Marshal(rep)
    if err != nil { return nil }
    var m map[string]any
    if err := json.Unmarshal(b, &m); err != nil { return nil }
    return m
}

func (s *Service) broadcast(ctx context.Context, text string) {
    for _, chat := range s.chatTargets(ctx) {
        if err := s.tg.SendMarkdownV2(ctx, chat, text); err != nil {
            s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
        }
    }
}

func (s *Service) broadcastPlain(ctx context.Context, text string) {
    for _, chat := range s.chatTargets(ctx) {
        if err := s.tg.SendMessagePlain(ctx, chat, text); err != nil {
            s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
        }
    }
}

// chatTargets returns the configured numeric chat IDs, falling back to
// resolving usernames when none are set.
func (s *Service) chatTargets(ctx context.Context) []int64 {
    if len(s.cfg.TelegramChatIDs) > 0 { return s.cfg.TelegramChatIDs }
    if len(s.cfg.TelegramChatUsernames) == 0 { return nil }
    type usernameResolver interface{ ResolveUsername(ctx context.Context, username string) (int64, error) }
    r, ok := s.tg.(usernameResolver)
    if !ok {
        s.log.Error().Msg("telegram client does not support username resolution; set TELEGRAM_CHAT_IDS")
        return nil
    }
    out := make([]int64, 0, len(s.cfg.TelegramChatUsernames))
    for _, u := range s.cfg.TelegramChatUsernames {
        id, err := r.ResolveUsername(ctx, u)
        if err != nil { s.log.Error().Err(err).Str("username", u).Msg("resolve username failed"); continue }
        out = append(out, id)
    }
    return out
}

func errString(err error) string { if err == nil { return "" }; return err.Error() }

/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "golang.org/x/time/rate"

    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/michaelbontyes/dev-board-v2/internal/domain"
)

type Client struct {
    baseURL string
    token   string
    basic   string
    user    string
    pass    string
    http    *http.Client
    lim     *rate.Limiter
    log     zerolog.Logger
    apiVer  string
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL: cfg.JiraBaseURL,
        token:   cfg.JiraPAT,
        basic:   getenvBasic(),
        user:    cfg.JiraUsername,
        pass:    cfg.JiraPassword,
        http:    &http.Client{ Timeout: cfg.HTTPTimeout },
        lim:     rate.NewLimiter(rate.Limit(cfg.JiraRPS), cfg.JiraBurst),
        log:     log,
        apiVer:  cfg.JiraAPIVersion,
    }
}

// getenvBasic reads JIRA_BASIC_AUTH from environment if present (format: user:pass base64), optional
func getenvBasic() string {
    v := ""
    if s := strings.TrimSpace(os.Getenv("JIRA_BASIC_AUTH")); s != "" { v = s }
    return v
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any) (map[string]any, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return nil, err }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        if err := c.lim.Wait(ctx); err != nil { return nil, err }
        var r io.Reader
        if payload != nil { r = strings.NewReader(string(payload)) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return nil, err }
        if payload != nil { req.Header.Set("Content-Type", "application/json") }
        if c.token != "" {
            req.Header.Set("Authorization", "Bearer "+c.token)
        } else if c.user != "" && c.pass != "" {
            req.SetBasicAuth(c.user, c.pass)
        } else if c.basic != "" {
            req.Header.Set("Authorization", "Basic "+c.basic)
        }
        resp, err := c.http.Do(req)
        if err != nil {
            lastErr = err
        } else {
            b, readErr := io.ReadAll(resp.Body)
            resp.Body.Close()
            if readErr != nil { return nil, readErr }
            if resp.StatusCode >= 300 {
                // retry on 429/5xx
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                } else {
                    return nil, fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                }
            } else {
                var out map[string]any
                if err := json.Unmarshal(b, &out); err != nil { return nil, err }
                return out, nil
            }
        }
        // backoff
        time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
    }
    return nil, lastErr
}

// Boards lists Jira Software boards (Agile API)
func (c *Client) Boards(ctx context.Context, startAt, max int) (map[string]any, error) {
    q := url.Values{}
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    u := c.apiURL("/rest/agile/1.0/board", q)
    return c.doJSON(ctx, http.MethodGet, u, nil)
}

// ResolveBoardByName finds a board id by display name: an exact match wins,
// otherwise the first board whose name contains the query (both
// case-insensitive). Returns domain.ErrBoardNotFound when nothing matches.
func (c *Client) ResolveBoardByName(ctx context.Context, name string) (int64, string, error) {
    name = strings.TrimSpace(name)
    if name == "" { return 0, "", fmt.Errorf("%w: empty board name", domain.ErrBoardNotFound) }
    var partialID int64
    var partialName string
    start := 0
    for {
        page, err := c.Boards(ctx, start, 50)
        if err != nil { return 0, "", err }
        vals, _ := page["values"].([]any)
        for _, b0 := range vals {
            b, _ := b0.(map[string]any)
            if b == nil { continue }
            bn, _ := b["name"].(string)
            id := num64(b["id"])
            if id <= 0 { continue }
            if strings.EqualFold(bn, name) { return id, bn, nil }
            if partialID == 0 && strings.Contains(strings.ToLower(bn), strings.ToLower(name)) {
                partialID, partialName = id, bn
            }
        }
        if last, _ := page["isLast"].(bool); last || len(vals) == 0 { break }
        start += len(vals)
    }
    if partialID > 0 { return partialID, partialName, nil }
    return 0, "", fmt.Errorf("%w: %q", domain.ErrBoardNotFound, name)
}

// Sprints lists a board's sprints (Agile API), optionally filtered by state
// ("active", "closed", "future" or a comma list).
func (c *Client) Sprints(ctx context.Context, boardID int64, state string, startAt, max int) (map[string]any, error) {
    if boardID <= 0 { return nil, errors.New("jira: invalid board id") }
    q := url.Values{}
    if strings.TrimSpace(state) != "" { q.Set("state", state) }
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    path := "/rest/agile/1.0/board/" + strconv.FormatInt(boardID, 10) + "/sprint"
    u := c.apiURL(path, q)
    return c.doJSON(ctx, http.MethodGet, u, nil)
}

// SprintIssues lists a sprint's issues with the changelog expanded, so most
// items need no extra history round trip.
func (c *Client) SprintIssues(ctx context.Context, sprintID int64, startAt, max int) (map[string]any, error) {
    if sprintID <= 0 { return nil, errors.New("jira: invalid sprint id") }
    q := url.Values{}
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    q.Set("fields", "*all")
    q.Set("expand", "changelog")
    path := "/rest/agile/1.0/sprint/" + strconv.FormatInt(sprintID, 10) + "/issue"
    u := c.apiURL(path, q)
    return c.doJSON(ctx, http.MethodGet, u, nil)
}

func (c *Client) Changelog(ctx context.Context, key string, startAt, max int) (map[string]any, error) {
    if key == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    path := "/rest/api/3/issue/"+url.PathEscape(key)+"/changelog"
    if c.apiVer == "2" { path = "/rest/api/2/issue/"+url.PathEscape(key)+"/changelog" }
    u := c.apiURL(path, q)
    return c.doJSON(ctx, http.MethodGet, u, nil)
}

func (c *Client) Worklogs(ctx context.Context, key string, startAt, max int) (map[string]any, error) {
    if key == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
    if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
    path := "/rest/api/3/issue/"+url.PathEscape(key)+"/worklog"
    if c.apiVer == "2" { path = "/rest/api/2/issue/"+url.PathEscape(key)+"/worklog" }
    u := c.apiURL(path, q)
    return c.doJSON(ctx, http.MethodGet, u, nil)
}

// num64 coerces Jira's numeric ids, which decode as float64, to int64.
func num64(v any) int64 {
    switch vv := v.(type) {
    case float64:
        return int64(vv)
    case int64:
        return vv
    case json.Number:
        n, _ := vv.Int64()
        return n
    }
    return 0
}

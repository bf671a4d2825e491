/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/rs/zerolog"
)

const apiBase = "https://api.telegram.org"

type Client struct {
    token string
    http  *http.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{ token: cfg.TelegramToken, http: &http.Client{ Timeout: 10 * time.Second }, log: log }
}

// call posts one Bot API method and returns the raw response body.
func (c *Client) call(ctx context.Context, method string, body map[string]any) ([]byte, error) {
    if c.token == "" { return nil, fmt.Errorf("telegram: missing token") }
    u := fmt.Sprintf("%s/bot%s/%s", apiBase, c.token, method)
    b, _ := json.Marshal(body)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
    if err != nil { return nil, err }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    out, _ := io.ReadAll(resp.Body)
    if resp.StatusCode >= 300 {
        return nil, fmt.Errorf("telegram %s status=%d body=%s", method, resp.StatusCode, string(out))
    }
    return out, nil
}

// send delivers one message; empty parseMode means plain text.
func (c *Client) send(ctx context.Context, chatID int64, text, parseMode string) error {
    if chatID == 0 { return fmt.Errorf("telegram: missing chat id") }
    body := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
    if parseMode != "" { body["parse_mode"] = parseMode }
    _, err := c.call(ctx, "sendMessage", body)
    return err
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, chatID, text, "Markdown")
}

// SendMessagePlain sends without parse_mode so Telegram never rejects the
// text over markup it happens to contain.
func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, chatID, text, "")
}

// SendMarkdownV2 sends a message using MarkdownV2 parse mode.
func (c *Client) SendMarkdownV2(ctx context.Context, chatID int64, text string) error {
    return c.send(ctx, chatID, text, "MarkdownV2")
}

// ResolveUsername looks up the numeric chat id behind an @username.
func (c *Client) ResolveUsername(ctx context.Context, username string) (int64, error) {
    if username == "" { return 0, fmt.Errorf("telegram: missing username") }
    out, err := c.call(ctx, "getChat", map[string]any{"chat_id": username})
    if err != nil { return 0, err }
    var r struct{ OK bool `json:"ok"`; Result struct{ ID int64 `json:"id"` } `json:"result"` }
    if err := json.Unmarshal(out, &r); err != nil { return 0, err }
    if !r.OK || r.Result.ID == 0 { return 0, fmt.Errorf("telegram: invalid getChat response") }
    return r.Result.ID, nil
}

// SetWebhook registers the webhook URL and secret with Telegram.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secretToken string) error {
    if webhookURL == "" || secretToken == "" { return fmt.Errorf("telegram: missing url or secret") }
    _, err := c.call(ctx, "setWebhook", map[string]any{
        "url":                  webhookURL,
        "secret_token":         secretToken,
        "drop_pending_updates": true,
        "allowed_updates":      []string{"message", "callback_query"},
    })
    return err
}

/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/michaelbontyes/dev-board-v2/internal/analytics"
    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/michaelbontyes/dev-board-v2/internal/domain"
    "github.com/michaelbontyes/dev-board-v2/internal/services"
    "github.com/rs/zerolog"
)

type service interface {
    BuildReport(ctx context.Context) (*analytics.Report, services.RunStats, error)
    RunDigest(ctx context.Context) error
    RunOnDemandReport(ctx context.Context, chatID int64) error
    SendHelp(ctx context.Context, chatID int64) error
    GetLastRun(ctx context.Context) (any, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Report builds a fresh report synchronously and returns it as JSON.
func (h *Handlers) Report(c *gin.Context) {
    rep, _, err := h.svc.BuildReport(c.Request.Context())
    if err != nil {
        if errors.Is(err, domain.ErrBoardNotFound) || errors.Is(err, domain.ErrSprintNotFound) {
            c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
            return
        }
        c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, rep)
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RunNow(c *gin.Context) {
    // Run in background detached from the HTTP request to avoid context cancellation
    go func(){ _ = h.svc.RunDigest(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) TelegramWebhook(c *gin.Context) {
    headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
    pathSecret := c.Param("secret")
    // Accept either header secret (preferred) or path secret
    if headerSecret != h.cfg.TelegramWebhookSecret && pathSecret != h.cfg.TelegramWebhookSecret {
        c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
        return
    }
    h.log.Info().Str("ip", c.ClientIP()).Str("ua", c.GetHeader("User-Agent")).Msg("telegram webhook received")

    // Parse minimal update payload for commands
    var upd struct {
        Message *struct {
            Chat struct { ID int64 `json:"id"` } `json:"chat"`
            Text string `json:"text"`
        } `json:"message"`
    }
    if err := c.ShouldBindJSON(&upd); err == nil && upd.Message != nil {
        chatID := upd.Message.Chat.ID
        text := upd.Message.Text
        // accept only configured chats if provided
        allowed := len(h.cfg.TelegramChatIDs) == 0
        if !allowed {
            for _, id := range h.cfg.TelegramChatIDs { if id == chatID { allowed = true; break } }
        }
        if allowed {
            // strip bot suffix and arguments: "/report@DevBoardBot 7d" -> "/report"
            cmd := text
            if i := strings.IndexAny(cmd, " @"); i > 0 { cmd = cmd[:i] }
            switch cmd {
            case "/report":
                go func(){ _ = h.svc.RunOnDemandReport(context.Background(), chatID) }()
            case "/start", "/help":
                go func(){ _ = h.svc.SendHelp(context.Background(), chatID) }()
            }
        }
    }

    c.JSON(http.StatusOK, gin.H{"ok": true})
}

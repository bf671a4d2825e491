package openai

import (
    "context"
    "encoding/json"
    "errors"
    "strings"

    openaigo "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/openai/openai-go/v2/shared"
    "github.com/rs/zerolog"

    "github.com/michaelbontyes/dev-board-v2/internal/config"
)

type Client struct {
    key   string
    model string
    cli   openaigo.Client
    log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    cli := openaigo.NewClient(option.WithAPIKey(cfg.OpenAIKey))
    return &Client{ key: cfg.OpenAIKey, model: model, cli: cli, log: log }
}

// Summarize turns a redacted report payload into a short prose narrative for
// the digest. Payload must already be scrubbed of personal data.
func (c *Client) Summarize(ctx context.Context, payload map[string]any) (string, error) {
    if strings.TrimSpace(c.key) == "" { return "", errors.New("openai: missing key") }
    c.log.Info().Str("model", c.model).Msg("openai Summarize call")
    userContent := ""
    if b, err := json.Marshal(payload); err == nil { userContent = string(b) }
    params := openaigo.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openaigo.ChatCompletionMessageParamUnion{
            openaigo.SystemMessage("You are a senior agile coach. Given per-sprint attribution metrics (starts, reviews, ships, logged hours, spillover), write a concise narrative: call out anomalies, stale carry-over and uneven load, and suggest one or two actions."),
            openaigo.UserMessage(userContent),
        },
    }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", err }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return resp.Choices[0].Message.Content, nil
}

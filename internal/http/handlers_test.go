package http

import (
    "context"
    "fmt"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/rs/zerolog"

    "github.com/michaelbontyes/dev-board-v2/internal/analytics"
    "github.com/michaelbontyes/dev-board-v2/internal/config"
    "github.com/michaelbontyes/dev-board-v2/internal/domain"
    "github.com/michaelbontyes/dev-board-v2/internal/services"
)

type stubService struct {
    report   func(ctx context.Context) (*analytics.Report, services.RunStats, error)
    onDemand chan int64
}

func (s *stubService) BuildReport(ctx context.Context) (*analytics.Report, services.RunStats, error) {
    if s.report != nil { return s.report(ctx) }
    return &analytics.Report{Board: "Delivery"}, services.RunStats{}, nil
}
func (s *stubService) RunDigest(ctx context.Context) error { return nil }
func (s *stubService) RunOnDemandReport(ctx context.Context, chatID int64) error {
    if s.onDemand != nil { s.onDemand <- chatID }
    return nil
}
func (s *stubService) SendHelp(ctx context.Context, chatID int64) error { return nil }
func (s *stubService) GetLastRun(ctx context.Context) (any, error) { return map[string]any{"success": true}, nil }

func testRouter(svc *stubService) *httptest.Server {
    cfg := config.Config{AppEnv: "test", TelegramWebhookSecret: "s3cret", TelegramChatIDs: []int64{42}}
    return httptest.NewServer(NewRouter(cfg, zerolog.Nop(), svc))
}

func TestHealthz(t *testing.T) {
    srv := testRouter(&stubService{})
    defer srv.Close()
    resp, err := srv.Client().Get(srv.URL + "/healthz")
    if err != nil { t.Fatalf("request failed: %v", err) }
    defer resp.Body.Close()
    if resp.StatusCode != 200 { t.Fatalf("expected 200, got %d", resp.StatusCode) }
}

func TestReport_StatusMapping(t *testing.T) {
    cases := []struct {
        err  error
        want int
    }{
        {nil, 200},
        {fmt.Errorf("board 7: %w", domain.ErrSprintNotFound), 404},
        {fmt.Errorf("resolve: %w", domain.ErrBoardNotFound), 404},
        {fmt.Errorf("jira api status=500 body=boom"), 502},
    }
    for _, tc := range cases {
        svc := &stubService{}
        if tc.err != nil {
            err := tc.err
            svc.report = func(ctx context.Context) (*analytics.Report, services.RunStats, error) {
                return nil, services.RunStats{}, err
            }
        }
        srv := testRouter(svc)
        resp, err := srv.Client().Get(srv.URL + "/report")
        if err != nil { srv.Close(); t.Fatalf("request failed: %v", err) }
        if resp.StatusCode != tc.want {
            t.Fatalf("err %v: expected %d, got %d", tc.err, tc.want, resp.StatusCode)
        }
        resp.Body.Close()
        srv.Close()
    }
}

func TestTelegramWebhook_SecretAndCommand(t *testing.T) {
    svc := &stubService{onDemand: make(chan int64, 1)}
    srv := testRouter(svc)
    defer srv.Close()

    body := `{"message":{"chat":{"id":42},"text":"/report"}}`
    resp, err := srv.Client().Post(srv.URL+"/telegram/webhook/wrong", "application/json", strings.NewReader(body))
    if err != nil { t.Fatalf("request failed: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != 403 { t.Fatalf("bad secret must be rejected, got %d", resp.StatusCode) }

    // bot suffix and trailing arguments must not hide the command
    body = `{"message":{"chat":{"id":42},"text":"/report@DevBoardBot 7d"}}`
    resp, err = srv.Client().Post(srv.URL+"/telegram/webhook/s3cret", "application/json", strings.NewReader(body))
    if err != nil { t.Fatalf("request failed: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != 200 { t.Fatalf("expected 200, got %d", resp.StatusCode) }
    select {
    case chat := <-svc.onDemand:
        if chat != 42 { t.Fatalf("expected chat 42, got %d", chat) }
    case <-time.After(2 * time.Second):
        t.Fatalf("on-demand report never triggered")
    }
}

func TestTelegramWebhook_IgnoresUnlistedChat(t *testing.T) {
    svc := &stubService{onDemand: make(chan int64, 1)}
    srv := testRouter(svc)
    defer srv.Close()

    body := `{"message":{"chat":{"id":999},"text":"/report"}}`
    resp, err := srv.Client().Post(srv.URL+"/telegram/webhook/s3cret", "application/json", strings.NewReader(body))
    if err != nil { t.Fatalf("request failed: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != 200 { t.Fatalf("expected 200, got %d", resp.StatusCode) }
    select {
    case chat := <-svc.onDemand:
        t.Fatalf("unlisted chat %d must not trigger a report", chat)
    case <-time.After(100 * time.Millisecond):
    }
}

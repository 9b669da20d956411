// Package progress reports stage and percentage updates to interested
// collaborators. Reporting is fire-and-forget: a reporter may drop updates
// but must never block or fail the pipeline.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stitcher/internal/logging"
)

const userAgent = "Stitcher/0.1.0"

// Update is one progress notification.
type Update struct {
	Stage   string
	Percent float64
	Message string
}

// Reporter receives pipeline progress. Implementations must be safe for
// concurrent use; the dispatcher reports from its worker pool.
type Reporter interface {
	Report(ctx context.Context, update Update)
}

// NewReporter builds a push reporter when a URL is configured, otherwise a
// no-op.
func NewReporter(pushURL string, timeout time.Duration, logger *slog.Logger) Reporter {
	pushURL = strings.TrimSpace(pushURL)
	if pushURL == "" {
		return noopReporter{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &pushReporter{
		endpoint: pushURL,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "progress"),
	}
}

type noopReporter struct{}

func (noopReporter) Report(context.Context, Update) {}

// Func adapts a function to the Reporter interface, mainly for tests.
type Func func(ctx context.Context, update Update)

func (f Func) Report(ctx context.Context, update Update) { f(ctx, update) }

// pushReporter POSTs updates to an ntfy-style endpoint. Errors are logged
// and swallowed.
type pushReporter struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func (p *pushReporter) Report(ctx context.Context, update Update) {
	body := fmt.Sprintf("%s: %.0f%%", update.Stage, update.Percent)
	if update.Message != "" {
		body += " - " + update.Message
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(body))
	if err != nil {
		p.logger.Debug("progress push skipped", logging.Error(err))
		return
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Title", "Stitcher Progress")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("progress push failed", logging.Error(err))
		return
	}
	_ = resp.Body.Close()
}

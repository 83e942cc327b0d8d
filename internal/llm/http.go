package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/docbatch/internal/common"
)

// maxReplyBytes bounds how much of a provider reply is read into memory.
const maxReplyBytes = 8 << 20

// StatusError is a provider reply outside the 2xx range.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.Code)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

// PostJSON posts body to endpoint and returns the raw reply. The request id carried by ctx is
// forwarded as X-Request-ID so a batch run can be matched with provider-side logs.
func PostJSON(ctx context.Context, client *http.Client, endpoint string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	rid := common.RequestIDFromContext(ctx)
	log := logger.With("req_id", rid, "run_id", common.RunIDFromContext(ctx))

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	log.Debug("llm.call.start", "endpoint", endpoint, "bytes", len(payload))
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("llm.call.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		log.Warn("llm.call.read_failed", "status", resp.StatusCode, "error", err)
		return nil, fmt.Errorf("read reply: %w", err)
	}
	log.Debug("llm.call.done", "status", resp.StatusCode, "bytes", len(reply), "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply, &StatusError{Code: resp.StatusCode, Body: truncateRunes(string(bytes.TrimSpace(reply)), 200)}
	}
	return reply, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

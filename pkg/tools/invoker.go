package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Invoker executes tool calls against the tool server. Failures are
// reported inside the result map under "tool_error" so the model can see
// them and recover; Invoke never returns a Go error.
type Invoker struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewInvoker creates an invoker posting to {baseURL}/{tool}.
func NewInvoker(baseURL string, timeout time.Duration, logger *zap.Logger) *Invoker {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Invoker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("tool_invoker"),
	}
}

// Invoke posts args as JSON to the named tool and returns the decoded
// result. Transport failures, non-2xx statuses and undecodable bodies all
// come back as {"tool_error": ...}.
func (i *Invoker) Invoke(ctx context.Context, name string, args map[string]any) map[string]any {
	url := i.baseURL + "/" + name

	body, err := json.Marshal(args)
	if err != nil {
		return i.toolError(name, fmt.Sprintf("Failed to encode arguments for tool '%s': %v", name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return i.toolError(name, fmt.Sprintf("Failed to build request for tool '%s': %v", name, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		i.logger.Error("Tool call failed",
			zap.String("tool", name), zap.Error(err))
		return i.toolError(name, fmt.Sprintf("Failed to call tool '%s': %v", name, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		i.logger.Error("Tool call returned error status",
			zap.String("tool", name),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return i.toolError(name, fmt.Sprintf("Tool '%s' returned HTTP %d", name, resp.StatusCode))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		i.logger.Error("Tool call returned invalid JSON",
			zap.String("tool", name), zap.Error(err))
		return i.toolError(name, fmt.Sprintf("Invalid JSON response from tool '%s'.", name))
	}

	return result
}

func (i *Invoker) toolError(name, message string) map[string]any {
	return map[string]any{"tool_error": message}
}

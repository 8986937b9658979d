// Package tools discovers and invokes the assistant's tool set over HTTP.
// The tool server publishes an OpenAPI document; the registry converts it
// into model-facing tool definitions, and the invoker executes calls.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/llm"
)

// Registry discovers tool definitions from the tool server's OpenAPI
// document and caches them. Safe for concurrent readers; Refresh swaps
// the cached set atomically.
type Registry struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	mu   sync.RWMutex
	defs []llm.ToolDefinition
}

// NewRegistry creates a registry reading {baseURL}/openapi.json.
func NewRegistry(baseURL string, timeout time.Duration, logger *zap.Logger) *Registry {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("tool_registry"),
	}
}

// Definitions returns the cached tool definitions. The slice must not be
// mutated by callers.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs
}

// Refresh fetches and re-parses the OpenAPI document. A fetch or parse
// failure keeps the previously discovered set; when there is none, the
// assistant degrades to answering without tools rather than failing the
// request.
func (r *Registry) Refresh(ctx context.Context) {
	defs, err := r.fetchDefinitions(ctx)
	if err != nil {
		r.mu.RLock()
		kept := len(r.defs)
		r.mu.RUnlock()
		if kept > 0 {
			r.logger.Warn("Tool definition refresh failed, keeping previous set",
				zap.Int("count", kept), zap.Error(err))
		} else {
			r.logger.Error("Tool definition refresh failed with no previous set",
				zap.Error(err))
		}
		return
	}

	r.mu.Lock()
	r.defs = defs
	r.mu.Unlock()

	r.logger.Info("Tool definitions refreshed", zap.Int("count", len(defs)))
}

func (r *Registry) fetchDefinitions(ctx context.Context) ([]llm.ToolDefinition, error) {
	url := r.baseURL + "/openapi.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenAPI schema from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching OpenAPI schema from %s",
			resp.StatusCode, url)
	}

	var doc openAPIDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAPI schema: %w", err)
	}

	return parseToolDefinitions(&doc), nil
}

// openAPIDocument is the subset of an OpenAPI 3 document the registry
// needs: POST operations and the component schemas their request bodies
// reference.
type openAPIDocument struct {
	Paths      map[string]pathItem `json:"paths"`
	Components struct {
		Schemas map[string]schemaObject `json:"schemas"`
	} `json:"components"`
}

type pathItem struct {
	Post *operation `json:"post"`
}

type operation struct {
	Summary     string       `json:"summary"`
	Description string       `json:"description"`
	RequestBody *requestBody `json:"requestBody"`
}

type requestBody struct {
	Content map[string]mediaType `json:"content"`
}

type mediaType struct {
	Schema schemaRef `json:"schema"`
}

type schemaRef struct {
	Ref string `json:"$ref"`
}

type schemaObject struct {
	Properties map[string]map[string]any `json:"properties"`
	Required   []string                  `json:"required"`
}

// parseToolDefinitions converts each POST path into one tool definition.
// Property schemas get normalized for the model: defaults are folded into
// the description and titles are used as the description fallback.
func parseToolDefinitions(doc *openAPIDocument) []llm.ToolDefinition {
	if doc == nil || len(doc.Paths) == 0 {
		return nil
	}

	// Map iteration order is random; sort so the definition sequence is
	// stable across refreshes.
	paths := make([]string, 0, len(doc.Paths))
	for path := range doc.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var defs []llm.ToolDefinition
	for _, path := range paths {
		item := doc.Paths[path]
		if item.Post == nil || !strings.HasPrefix(path, "/") {
			continue
		}

		name := strings.TrimPrefix(path, "/")
		op := item.Post

		parameters := map[string]any{
			"type":       "object",
			"properties": map[string]any{},
			"required":   []string{},
		}

		if op.RequestBody != nil {
			if content, ok := op.RequestBody.Content["application/json"]; ok {
				ref := content.Schema.Ref
				if strings.HasPrefix(ref, "#/components/schemas/") {
					schemaName := ref[strings.LastIndex(ref, "/")+1:]
					if schema, ok := doc.Components.Schemas[schemaName]; ok && schema.Properties != nil {
						parameters["properties"] = normalizeProperties(schema.Properties)
						if schema.Required != nil {
							parameters["required"] = schema.Required
						}
					}
				}
			}
		}

		description := op.Description
		if description == "" {
			description = op.Summary
		}

		defs = append(defs, llm.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		})
	}

	return defs
}

func normalizeProperties(props map[string]map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for name, prop := range props {
		normalized := make(map[string]any, len(prop))
		for k, v := range prop {
			normalized[k] = v
		}

		if def, ok := normalized["default"]; ok {
			desc, _ := normalized["description"].(string)
			normalized["description"] = desc + fmt.Sprintf(" (default: %v)", def)
		}
		if _, ok := normalized["description"]; !ok {
			if title, ok := normalized["title"].(string); ok {
				normalized["description"] = title
			}
		}
		delete(normalized, "title")

		out[name] = normalized
	}
	return out
}

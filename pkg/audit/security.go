// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events from the assistant's tool-calling path
// in structured JSON format for easy parsing and alerting.
package audit

import (
	"context"
	"encoding/json"
	"time"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ami-sense/ami-engine/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventIdentityOverride is logged when a model-supplied identity argument
	// on a user-scoped tool differed from the authenticated caller and was
	// replaced.
	EventIdentityOverride SecurityEventType = "identity_override"
	// EventSQLInjectionAttempt is logged when libinjection detects SQL
	// injection patterns in model-supplied tool arguments.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventToolInvocation is logged for each tool the assistant executes
	// (optional, can be high volume).
	EventToolInvocation SecurityEventType = "tool_invocation"
)

// SecurityEvent represents an auditable security event with context for
// SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventID   uuid.UUID         `json:"event_id"`
	EventType SecurityEventType `json:"event_type"`
	Username  string            `json:"username,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionDetails contains specifics of a detected SQL injection pattern
// in a tool argument.
type InjectionDetails struct {
	ToolName    string `json:"tool_name"`
	ParamName   string `json:"param_name"`
	ParamValue  string `json:"param_value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor. Its events carry the
// "security_audit" logger namespace for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogIdentityOverride records that a user-scoped tool call carried an
// identity argument that did not match the authenticated caller. The
// argument was replaced before invocation, so this is a WARN, not a block.
func (a *SecurityAuditor) LogIdentityOverride(ctx context.Context, toolName, argName, suppliedValue string) {
	username := auth.GetUsernameFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventID:   uuid.New(),
		EventType: EventIdentityOverride,
		Username:  username,
		Details: map[string]string{
			"tool_name":      toolName,
			"arg_name":       argName,
			"supplied_value": suppliedValue,
		},
		Severity: "warning",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Identity argument overridden on user-scoped tool",
		zap.String("event_json", string(eventJSON)),
		zap.String("tool_name", toolName),
		zap.String("arg_name", argName),
		zap.String("supplied_value", suppliedValue),
		zap.String("username", username),
		zap.String("severity", "warning"),
	)
}

// ScreenToolArguments runs libinjection over string-valued tool arguments
// and logs any SQL injection patterns at ERROR level with "critical"
// severity. The call is observational: screening never blocks invocation,
// tools validate their own inputs.
func (a *SecurityAuditor) ScreenToolArguments(ctx context.Context, toolName string, args map[string]any) {
	for name, value := range args {
		strValue, ok := value.(string)
		if !ok {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(strValue)
		if !isSQLi {
			continue
		}
		a.logInjectionAttempt(ctx, InjectionDetails{
			ToolName:    toolName,
			ParamName:   name,
			ParamValue:  strValue,
			Fingerprint: string(fingerprint),
		})
	}
}

func (a *SecurityAuditor) logInjectionAttempt(ctx context.Context, details InjectionDetails) {
	username := auth.GetUsernameFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventID:   uuid.New(),
		EventType: EventSQLInjectionAttempt,
		Username:  username,
		Details:   details,
		Severity:  "critical",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("SQL injection pattern in tool arguments",
		zap.String("event_json", string(eventJSON)),
		zap.String("tool_name", details.ToolName),
		zap.String("param_name", details.ParamName),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("username", username),
		zap.String("severity", "critical"),
	)
}

// LogToolInvocation records a tool execution for the audit trail.
// Logged at INFO level; can generate high volume in production.
func (a *SecurityAuditor) LogToolInvocation(ctx context.Context, toolName string) {
	username := auth.GetUsernameFromContext(ctx)

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventID:   uuid.New(),
		EventType: EventToolInvocation,
		Username:  username,
		Details: map[string]string{
			"tool_name": toolName,
		},
		Severity: "info",
	}
	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Tool invoked",
		zap.String("event_json", string(eventJSON)),
		zap.String("tool_name", toolName),
		zap.String("username", username),
		zap.String("severity", "info"),
	)
}

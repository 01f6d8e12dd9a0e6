package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are the structured fields automatically attached to every log
// line emitted within a context — the zero-touch enrichment pattern: set
// once at the top of a request, read by every slog call underneath it.
type LogFields struct {
	TenantID   string
	QueryID    string
	Strategy   string
	QueryKind  string
	Component  string // e.g. "rde.orchestrator", "rde.fusion"
}

// WithLogFields enriches context with structured log fields. Multiple
// calls merge fields, with newer non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing
	if next.TenantID != "" {
		result.TenantID = next.TenantID
	}
	if next.QueryID != "" {
		result.QueryID = next.QueryID
	}
	if next.Strategy != "" {
		result.Strategy = next.Strategy
	}
	if next.QueryKind != "" {
		result.QueryKind = next.QueryKind
	}
	if next.Component != "" {
		result.Component = next.Component
	}
	return result
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long query text.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

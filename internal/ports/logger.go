package ports

import "context"

// Logger is the structured logger every component receives. Fields are
// merged into the log line; the context carries request-scoped values such as
// the request ID.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs err alongside msg at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}

package services

import "context"

type contextKey string

const (
	queryIDKey   contextKey = "query_id"
	stageKey     contextKey = "stage"
	movieIDKey   contextKey = "movie_id"
	requestIDKey contextKey = "request_id"
)

// WithQueryID annotates context with the pipeline query identifier.
func WithQueryID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, queryIDKey, id)
}

// QueryIDFromContext extracts the pipeline query identifier if present.
func QueryIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(queryIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithMovieID annotates context with the resolved movie's external identifier.
func WithMovieID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, movieIDKey, id)
}

// MovieIDFromContext extracts the movie external identifier if present.
func MovieIDFromContext(ctx context.Context) (int64, bool) {
	switch v := ctx.Value(movieIDKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

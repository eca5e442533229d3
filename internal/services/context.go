package services

import "context"

type ctxKey int

const (
	runIDKey ctxKey = iota
	jobIDKey
	stageKey
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithRunID annotates ctx with the identifier shared by every job of one CLI
// invocation, batch, watch session or API request.
func WithRunID(ctx context.Context, id string) context.Context { return withValue(ctx, runIDKey, id) }

func RunIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, runIDKey) }

// WithJobID annotates ctx with the single-file job identifier.
func WithJobID(ctx context.Context, id string) context.Context { return withValue(ctx, jobIDKey, id) }

func JobIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, jobIDKey) }

// WithStage annotates ctx with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

package logctx

import "context"

type ctxKey string

const (
	keyRID        ctxKey = "rid"
	keyLocationID ctxKey = "location_id"
)

// WithRID stores the request correlation id used in log lines.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

func WithLocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyLocationID, id)
}

// LocationID returns the location being processed, if any.
func LocationID(ctx context.Context) string {
	v, _ := ctx.Value(keyLocationID).(string)
	return v
}

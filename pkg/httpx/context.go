package httpx

import "context"

type ctxKey string

// CtxKeyAccountID carries the authenticated account id. Set by the session
// middleware, consumed by handlers and the per-user rate limiter.
const CtxKeyAccountID ctxKey = "account_id"

// AccountIDFromContext returns the authenticated account id, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxKeyAccountID).(string)
	return id, ok && id != ""
}

package middlewares

// Keys under which middlewares stash per-request values on the gin context.
// handlers reads CtxRequestID when building error envelopes, so the literal
// must stay in sync with requestIDFrom there.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
	CtxEmail     = "auth.email"
	CtxRole      = "auth.role"
)

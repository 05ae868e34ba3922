package types

// ContextKey is the type used for request-scoped context values.
type ContextKey string

const (
	HeaderRequestID = "X-Request-ID"

	CtxRequestID ContextKey = "ctx_request_id"
)

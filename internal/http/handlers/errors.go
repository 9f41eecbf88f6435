package handlers

// Error codes carried in ErrorResponse.Code.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Account and identity failures
	ErrCodeCreateFailed    = "create_failed"
	ErrCodeUpdateFailed    = "update_failed"
	ErrCodeUnknownProtocol = "unknown_protocol"
	ErrCodeInvalidPGPKey   = "invalid_pgp_key"
	ErrCodeNoPGPKey        = "no_pgp_key"
	ErrCodeResolveFailed   = "resolve_failed"
)

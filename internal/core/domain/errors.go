package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStateInvalid indicates the authorization state token is missing,
	// forged, replayed, or expired. The sub-cases are deliberately not
	// distinguished so a probing client cannot learn which predicate failed.
	ErrStateInvalid = errors.New("authorization state invalid")

	// ErrTokenExchangeFailed indicates the provider rejected or timed out
	// on the authorization code exchange
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrMetadataFetchFailed indicates the token was obtained but the
	// account metadata lookup failed; the token is discarded
	ErrMetadataFetchFailed = errors.New("account metadata fetch failed")

	// ErrNotConnected indicates the user has no connection row
	ErrNotConnected = errors.New("not connected")

	// ErrInactive indicates the connection was soft-disconnected
	ErrInactive = errors.New("connection inactive")

	// ErrCorruptedConnection indicates the stored token cannot be decrypted
	// and manual remediation (force reconnect) is required
	ErrCorruptedConnection = errors.New("connection credentials corrupted")
)

// ErrorCode classifies a failed operation for callers of the access layer.
// Codes are stable strings carried in the CallEnvelope.
type ErrorCode string

const (
	CodeStateInvalid         ErrorCode = "StateInvalid"
	CodeTokenExchangeFailed  ErrorCode = "TokenExchangeFailed"
	CodeMetadataFetchFailed  ErrorCode = "MetadataFetchFailed"
	CodeNotConnected         ErrorCode = "NotConnected"
	CodeInactive             ErrorCode = "Inactive"
	CodeCorruptedConnection  ErrorCode = "CorruptedConnection"
	CodeUpstreamRateLimited  ErrorCode = "UpstreamRateLimited"
	CodeUpstreamAuthError    ErrorCode = "UpstreamAuthError"
	CodeUpstreamNetworkError ErrorCode = "UpstreamNetworkError"
	CodeUpstreamGenericError ErrorCode = "UpstreamGenericError"
)

// UpstreamError describes a failed call to the Mailchimp API.
// Adapters construct it from the HTTP response (or transport failure) so the
// call wrapper can classify without knowing HTTP details.
type UpstreamError struct {
	// StatusCode is the upstream HTTP status, 0 for transport failures.
	StatusCode int

	// Detail is the upstream error description, if any.
	Detail string

	// Transport marks network-level failures (DNS, timeout, connection reset).
	Transport bool

	// RateLimit carries parsed rate-limit headers when the upstream sent them.
	RateLimit *RateLimit
}

func (e *UpstreamError) Error() string {
	if e.Transport {
		return fmt.Sprintf("upstream transport error: %s", e.Detail)
	}
	return fmt.Sprintf("upstream error %d: %s", e.StatusCode, e.Detail)
}

// upstreamError unwraps err to an *UpstreamError if one is in the chain.
func upstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// CodeForError maps an error to its taxonomy code.
// Unknown errors classify as UpstreamGenericError: the call wrapper never
// lets an unclassified failure escape as anything else.
func CodeForError(err error) ErrorCode {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch {
		case ue.Transport:
			return CodeUpstreamNetworkError
		case ue.StatusCode == 429:
			return CodeUpstreamRateLimited
		case ue.StatusCode == 401 || ue.StatusCode == 403:
			return CodeUpstreamAuthError
		default:
			return CodeUpstreamGenericError
		}
	}

	switch {
	case errors.Is(err, ErrStateInvalid):
		return CodeStateInvalid
	case errors.Is(err, ErrTokenExchangeFailed):
		return CodeTokenExchangeFailed
	case errors.Is(err, ErrMetadataFetchFailed):
		return CodeMetadataFetchFailed
	case errors.Is(err, ErrNotConnected):
		return CodeNotConnected
	case errors.Is(err, ErrInactive):
		return CodeInactive
	case errors.Is(err, ErrCorruptedConnection):
		return CodeCorruptedConnection
	default:
		return CodeUpstreamGenericError
	}
}

package domain

import "time"

// RateLimit carries the upstream's rate-limit headers when present.
type RateLimit struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetTime time.Time `json:"reset_time"`
}

// CallEnvelope is the uniform result of every upstream API call. Exactly one
// of Data and Error is populated; ErrorCode is always set on failure. The
// call wrapper never returns a bare error to its caller, so calling code has
// one branch to handle instead of an exception hierarchy.
type CallEnvelope struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorCode  ErrorCode  `json:"error_code,omitempty"`
	StatusCode int        `json:"status_code,omitempty"`
	RateLimit  *RateLimit `json:"rate_limit,omitempty"`
}

// SuccessEnvelope wraps a successful call result.
func SuccessEnvelope(data any) CallEnvelope {
	return CallEnvelope{Success: true, Data: data}
}

// ErrorEnvelope classifies err into a failed envelope, extracting the
// upstream status and rate-limit info when the error carries them.
func ErrorEnvelope(err error) CallEnvelope {
	env := CallEnvelope{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: CodeForError(err),
	}
	if ue, ok := upstreamError(err); ok {
		env.StatusCode = ue.StatusCode
		env.RateLimit = ue.RateLimit
	}
	return env
}

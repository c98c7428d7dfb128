// Package apierr models the upstream API's response envelope errors and
// classifies them into the three buckets the sync pipeline's error-handling
// design distinguishes: fatal (risk control), row-invalidating (not found),
// and everything else (recoverable, bumps a retry counter).
package apierr

import (
	"errors"
	"fmt"
)

// Error wraps one upstream envelope failure: `{code, message}` with code
// != 0, or a transport-level HTTP status with no envelope at all.
type Error struct {
	Status int   // HTTP status, 0 if the envelope itself carries the failure
	Code   int   // site envelope `code` field, 0 if this is a transport error
	Err    error // underlying cause, if any
}

func New(status, code int, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil && e.Code != 0:
		return fmt.Sprintf("api error (code=%d): %v", e.Code, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != 0:
		return fmt.Sprintf("api error (code=%d)", e.Code)
	case e.Status != 0:
		return fmt.Sprintf("api error (status=%d)", e.Status)
	default:
		return "api error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// CodeNotFound is the envelope code the upstream uses for a removed or
// private video; rows hitting it are marked invalid and never retried.
const CodeNotFound = -404

// riskControl names the envelope codes this deployment has observed as
// fatal to a run: rate limiting, captcha challenges, and account lockouts.
// The original project's equivalent table lives in the upstream HTTP
// client crate, which is out of scope here (spec §1); this table is this
// repo's own and can grow as new upstream behaviors are observed.
var riskControl = map[int]string{
	-352: "risk control challenge",
	-412: "request intercepted by risk control",
	-799: "rate limited",
}

// riskControlStatus covers the case where risk control short-circuits
// before an envelope is even returned (a bare 412/429/403 at the transport
// layer).
var riskControlStatus = map[int]string{
	403: "forbidden (possible account lockout)",
	412: "precondition failed (risk control)",
	429: "too many requests",
}

// IsRiskControl reports whether err, or any error it wraps, is classified
// as upstream risk control. This is the single classifier the scheduler
// calls to decide whether to abort a run — it must never inline a status
// code comparison itself (see SPEC_FULL §12).
func IsRiskControl(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return false
	}
	if _, ok := riskControl[e.Code]; ok {
		return true
	}
	if _, ok := riskControlStatus[e.Status]; ok {
		return true
	}
	return false
}

// RiskControlReason returns the human-readable reason IsRiskControl
// tripped, for the aborting log line. Returns "" if err is not risk
// control related.
func RiskControlReason(err error) string {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return ""
	}
	if reason, ok := riskControl[e.Code]; ok {
		return reason
	}
	if reason, ok := riskControlStatus[e.Status]; ok {
		return reason
	}
	return ""
}

// IsNotFound reports whether err represents the upstream's "gone" signal.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return false
	}
	return e.Code == CodeNotFound
}

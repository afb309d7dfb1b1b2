// Package apierr gives the error kinds from the collision search's
// error-handling design (BadRequest, BadHashLength, AuthFailure,
// Transient, ConfigMismatch, NoCollision) a concrete Go type, mapped
// onto gRPC status codes the way the teacher's pkg/util.StatusWrap
// wraps errors with a codes.Code even outside of an actual gRPC
// service. This lets the finalizer and the HTTP server share one error
// vocabulary instead of inventing HTTP-specific sentinels.
package apierr

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies one of the error categories from the error handling
// design.
type Kind int

const (
	// KindBadRequest is malformed JSON or a missing field.
	KindBadRequest Kind = iota
	// KindInvalidResultFormat is a body that parses as JSON but whose
	// results array doesn't have the expected shape.
	KindInvalidResultFormat
	// KindBadHashLength is a start/dp that doesn't decode to
	// total_bytes.
	KindBadHashLength
	// KindAuthFailure is an unknown user or wrong token.
	KindAuthFailure
	// KindTransient is a retryable failure: DB unavailable, I/O
	// error.
	KindTransient
	// KindConfigMismatch is a submitted DP that doesn't satisfy the
	// server's configured DP predicate. Never surfaced over HTTP:
	// the record is dropped silently and only logged.
	KindConfigMismatch
	// KindNoCollision is returned by the finalizer when two starts
	// turn out to share a chain rather than a genuine collision.
	KindNoCollision
)

// properties bundles together everything the HTTP layer and the logs
// need to know about a Kind: its gRPC code and its canonical wire
// message (where one exists).
type properties struct {
	code    codes.Code
	httpSts int
	message string
}

var kindProperties = map[Kind]properties{
	KindBadRequest:          {codes.InvalidArgument, 400, "bad request"},
	KindInvalidResultFormat: {codes.InvalidArgument, 400, "invalid result data format"},
	KindBadHashLength:       {codes.InvalidArgument, 400, "bad hash length"},
	KindAuthFailure:         {codes.Unauthenticated, 401, "bad username and/or usertoken"},
	KindTransient:           {codes.Unavailable, 500, "internal error"},
	KindConfigMismatch:      {codes.FailedPrecondition, 0, "submitted distinguished point does not satisfy the configured difficulty"},
	KindNoCollision:         {codes.NotFound, 0, "no collision"},
}

// Error is an error annotated with a Kind, so callers that need to
// react differently per category (the HTTP handler, the miner's retry
// loop) can do so with a single type switch instead of string
// matching.
type Error struct {
	Kind   Kind
	detail string
}

func (e *Error) Error() string {
	msg := kindProperties[e.Kind].message
	if e.detail == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, e.detail)
}

// GRPCStatus lets errors.As-style callers (and anything that calls
// status.Convert) recover a codes.Code for this error, following the
// same convention as the teacher's util.StatusWrap.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(kindProperties[e.Kind].code, e.Error())
}

// New constructs an *Error of the given kind carrying an additional
// detail string, used for logs (the canonical wire message returned to
// clients never includes the detail).
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, detail: detail}
}

// Newf is New with a formatted detail string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Message returns the canonical wire-level status string for kind, as
// used in the {"status": "..."} JSON response body.
func Message(kind Kind) string {
	return kindProperties[kind].message
}

// HTTPStatus returns the HTTP status code the server responds with for
// kind. It is 0 for kinds that never cross the HTTP boundary
// (KindConfigMismatch, KindNoCollision).
func HTTPStatus(kind Kind) int {
	return kindProperties[kind].httpSts
}

// KindOf extracts the Kind from err if it is an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	return 0, false
}

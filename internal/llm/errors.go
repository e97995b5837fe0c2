package llm

import "errors"

var (
	// ErrUnavailable indicates the completion API endpoint is unreachable.
	ErrUnavailable = errors.New("chat completion endpoint unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("chat completion request timed out")

	// ErrBadResponse indicates the upstream returned a response that could
	// not be used: a non-2xx status, malformed JSON, or zero choices.
	ErrBadResponse = errors.New("bad chat completion response")
)

package middleware

import "errors"

// ErrRetryExhausted is returned by the retry middleware when every attempt
// failed with a retryable error. The last provider error is wrapped alongside
// it, so both errors.Is(err, ErrRetryExhausted) and inspection of the root
// cause work.
var ErrRetryExhausted = errors.New("draftly: all retry attempts exhausted")

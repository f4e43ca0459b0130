package apperr

import (
	"fmt"
	"strings"
	"time"
)

func Transport(op, endpoint string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Endpoint: endpoint, Err: err}
}

func Timeout(op string, phase TimeoutPhase, d time.Duration, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Phase: phase, Duration: d, Err: err}
}

// RateLimited builds a rate-limit error; retryAfter of zero means the server
// did not say.
func RateLimited(op string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Op: op, RetryAfter: retryAfter}
}

func HTTPStatus(op string, status int, body string) *Error {
	return &Error{Kind: KindHTTPStatus, Op: op, StatusCode: status, ResponseBody: body}
}

func RPC(method string, code int, message string) *Error {
	return &Error{Kind: KindRPC, Op: method, RPCCode: code, Message: message}
}

func Malformed(op, reason string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Op: op, Message: reason, Err: err}
}

func NoData(firstSlot, lastSlot uint64) *Error {
	return &Error{Kind: KindNoData, FirstSlot: firstSlot, LastSlot: lastSlot}
}

// Auth maps an authentication status to its reason. A 401 is a missing key
// when no credentials were sent and a rejected key otherwise. A 403 is an
// address block when the body says so and an exhausted quota otherwise.
func Auth(op string, status int, credentialed bool, body string) *Error {
	var reason AuthReason
	switch {
	case status == 401 && !credentialed:
		reason = AuthMissingKey
	case status == 401:
		reason = AuthInvalidKey
	case mentionsAddressBlock(body):
		reason = AuthIPBlocked
	default:
		reason = AuthQuotaExceeded
	}
	return &Error{Kind: KindAuth, Op: op, StatusCode: status, AuthReason: reason, ResponseBody: body}
}

var addressBlockPhrases = []string{"ip address", "ip not allowed", "ip blocked", "blocked ip", "not whitelisted", "not allowlisted"}

func mentionsAddressBlock(body string) bool {
	body = strings.ToLower(body)
	for _, phrase := range addressBlockPhrases {
		if strings.Contains(body, phrase) {
			return true
		}
	}
	return false
}

func InvalidConfiguration(field, message, suggestion string) *Error {
	return &Error{Kind: KindInvalidConfiguration, Field: field, Message: message, Suggestion: suggestion}
}

func InvalidSlotRange(firstSlot, lastSlot uint64) *Error {
	return &Error{
		Kind:      KindInvalidSlotRange,
		FirstSlot: firstSlot,
		LastSlot:  lastSlot,
		Message:   fmt.Sprintf("first slot %d must be less than last slot %d", firstSlot, lastSlot),
	}
}

// RetriesExhausted wraps the last classified failure together with one
// description per failed attempt, oldest first.
func RetriesExhausted(op string, attempts int, elapsed time.Duration, last error, history []string) *Error {
	h := make([]string, len(history))
	copy(h, history)
	return &Error{Kind: KindRetriesExhausted, Op: op, Attempts: attempts, Duration: elapsed, History: h, Err: last}
}

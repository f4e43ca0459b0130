package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindRateLimited
	KindHTTPStatus
	KindRPC
	KindMalformedResponse
	KindNoData
	KindAuth
	KindInvalidConfiguration
	KindInvalidSlotRange
	KindRetriesExhausted
)

var kindNames = map[Kind]string{
	KindTransport:            "transport",
	KindTimeout:              "timeout",
	KindRateLimited:          "rate_limited",
	KindHTTPStatus:           "http_status",
	KindRPC:                  "rpc",
	KindMalformedResponse:    "malformed_response",
	KindNoData:               "no_data",
	KindAuth:                 "auth",
	KindInvalidConfiguration: "invalid_configuration",
	KindInvalidSlotRange:     "invalid_slot_range",
	KindRetriesExhausted:     "retries_exhausted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryConfiguration  Category = "configuration"
	CategoryValidation     Category = "validation"
	CategoryRPC            Category = "rpc"
	CategoryRateLimit      Category = "rate_limit"
	CategoryAuthentication Category = "authentication"
)

// TimeoutPhase tags which part of an attempt ran out of time.
type TimeoutPhase string

const (
	PhaseConnection TimeoutPhase = "connection"
	PhaseRead       TimeoutPhase = "read"
	PhaseRequest    TimeoutPhase = "request"
)

type AuthReason string

const (
	AuthMissingKey    AuthReason = "missing_api_key"
	AuthInvalidKey    AuthReason = "invalid_api_key"
	AuthQuotaExceeded AuthReason = "quota_exceeded"
	AuthIPBlocked     AuthReason = "ip_blocked"
)

// JSON-RPC codes a caller may retry. The transport itself never retries RPC errors.
const (
	CodeInternalError = -32603
	CodeServerError   = -32000
)

var retryableRPCCodes = map[int]bool{
	CodeInternalError: true,
	CodeServerError:   true,
}

const (
	defaultRateLimitDelay = 60 * time.Second
	defaultTimeoutDelay   = 5 * time.Second
	defaultTransportDelay = 2 * time.Second
	defaultRetryDelay     = 1 * time.Second
)

// Error is the single error type surfaced by the transport, the analytics
// engine and the client facade. Which fields are populated depends on Kind.
type Error struct {
	Kind    Kind
	Op      string
	Message string

	Endpoint     string
	StatusCode   int
	RPCCode      int
	Phase        TimeoutPhase
	Duration     time.Duration
	RetryAfter   time.Duration
	AuthReason   AuthReason
	Field        string
	Suggestion   string
	FirstSlot    uint64
	LastSlot     uint64
	Attempts     int
	History      []string
	ResponseBody string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch e.Kind {
	case KindTransport:
		fmt.Fprintf(&b, "transport failure talking to %s", e.Endpoint)
	case KindTimeout:
		fmt.Fprintf(&b, "%s timeout after %s", e.Phase, e.Duration)
	case KindRateLimited:
		b.WriteString("rate limited")
		if e.RetryAfter > 0 {
			fmt.Fprintf(&b, ", retry after %s", e.RetryAfter)
		}
	case KindHTTPStatus:
		fmt.Fprintf(&b, "unexpected http status %d", e.StatusCode)
	case KindRPC:
		fmt.Fprintf(&b, "rpc error (%d): %s", e.RPCCode, e.Message)
	case KindMalformedResponse:
		fmt.Fprintf(&b, "malformed response: %s", e.Message)
	case KindNoData:
		fmt.Fprintf(&b, "no block production data for slots %d-%d", e.FirstSlot, e.LastSlot)
	case KindAuth:
		fmt.Fprintf(&b, "authentication failed (%s)", e.AuthReason)
		if e.StatusCode != 0 {
			fmt.Fprintf(&b, ": http %d", e.StatusCode)
		}
	case KindInvalidConfiguration:
		b.WriteString("invalid configuration")
		if e.Field != "" {
			fmt.Fprintf(&b, " for %s", e.Field)
		}
		if e.Message != "" {
			fmt.Fprintf(&b, ": %s", e.Message)
		}
	case KindInvalidSlotRange:
		fmt.Fprintf(&b, "invalid slot range: first slot %d must be less than last slot %d", e.FirstSlot, e.LastSlot)
	case KindRetriesExhausted:
		fmt.Fprintf(&b, "failed after %d attempts over %s", e.Attempts, e.Duration)
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindTimeout, KindRateLimited:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500 && e.StatusCode <= 599
	case KindRPC:
		return retryableRPCCodes[e.RPCCode]
	default:
		return false
	}
}

// ConfigurationError reports whether the failure was caught before any
// network activity because of bad input.
func (e *Error) ConfigurationError() bool {
	return e.Kind == KindInvalidConfiguration || e.Kind == KindInvalidSlotRange
}

func (e *Error) Transient() bool {
	switch e.Kind {
	case KindTransport, KindTimeout, KindRateLimited:
		return true
	default:
		return false
	}
}

// SuggestedRetryDelay returns how long a caller should wait before retrying.
// The boolean is false for terminal errors.
func (e *Error) SuggestedRetryDelay() (time.Duration, bool) {
	switch e.Kind {
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return e.RetryAfter, true
		}
		return defaultRateLimitDelay, true
	case KindTimeout:
		return defaultTimeoutDelay, true
	case KindTransport:
		return defaultTransportDelay, true
	}
	if e.Retryable() {
		return defaultRetryDelay, true
	}
	return 0, false
}

func (e *Error) Category() Category {
	switch e.Kind {
	case KindTransport, KindTimeout, KindHTTPStatus:
		return CategoryNetwork
	case KindInvalidConfiguration:
		return CategoryConfiguration
	case KindInvalidSlotRange, KindNoData:
		return CategoryValidation
	case KindRPC, KindMalformedResponse:
		return CategoryRPC
	case KindRateLimited:
		return CategoryRateLimit
	case KindAuth:
		return CategoryAuthentication
	case KindRetriesExhausted:
		var last *Error
		if errors.As(e.Err, &last) {
			return last.Category()
		}
		return CategoryNetwork
	default:
		return CategoryNetwork
	}
}

// Hints returns operator-facing suggestions for resolving the failure.
func (e *Error) Hints() []string {
	var hints []string
	switch e.Kind {
	case KindTimeout:
		hints = append(hints, fmt.Sprintf("request timed out after %s", e.Duration))
		switch e.Phase {
		case PhaseConnection:
			hints = append(hints, "check network connectivity", "verify the RPC endpoint is reachable")
		case PhaseRead:
			hints = append(hints, "the RPC server is not responding", "try a different RPC endpoint")
		default:
			hints = append(hints, "consider increasing the request timeout", "check network latency to the RPC endpoint")
		}
	case KindTransport:
		hints = append(hints, "verify the RPC endpoint URL is correct", "check if the RPC service is running")
	case KindRateLimited:
		hints = append(hints, "reduce request frequency", "consider a private RPC endpoint for higher limits")
	case KindAuth:
		switch e.AuthReason {
		case AuthMissingKey:
			hints = append(hints, "add an API key to the request headers")
		case AuthInvalidKey:
			hints = append(hints, "verify the API key is correct and not expired")
		case AuthQuotaExceeded:
			hints = append(hints, "upgrade the RPC plan or wait for the quota reset")
		case AuthIPBlocked:
			hints = append(hints, "contact the RPC provider to unblock the IP address")
		}
	case KindInvalidConfiguration:
		if e.Suggestion != "" {
			hints = append(hints, e.Suggestion)
		}
	case KindRetriesExhausted:
		var last *Error
		if errors.As(e.Err, &last) {
			hints = append(hints, last.Hints()...)
		}
	}
	return hints
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable()
}

func IsConfigurationError(err error) bool {
	e, ok := As(err)
	return ok && e.ConfigurationError()
}

package recovery

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is one of the five recovery-relevant failure categories. Every
// failure classifies to exactly one kind; there is no "unknown".
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindRateLimit      Kind = "rate_limit"
	KindNetwork        Kind = "network"
	KindAPI            Kind = "api"
	KindValidation     Kind = "validation"
)

// DefaultRetryAfter is used for rate-limit failures that carry no
// explicit Retry-After hint.
const DefaultRetryAfter = 60 * time.Second

// ClassifiedError is a raw failure mapped to a recovery category.
// It is ephemeral: logged and acted on, never persisted.
type ClassifiedError struct {
	Kind       Kind
	Message    string
	Retryable  bool
	RetryAfter time.Duration // 0 = caller computes backoff
	RaisedAt   time.Time
	cause      error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

// StatusError is an HTTP-shaped failure raised by collaborator clients so
// that classification can use the status code and Retry-After header
// instead of message text alone.
type StatusError struct {
	Code   int
	Header http.Header
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Rule matches a raw failure to a kind. Rules are evaluated in order;
// the first match wins. msg is the lowercased error text and code is the
// attached HTTP status (0 if none).
type Rule struct {
	Kind  Kind
	Match func(msg string, code int) bool
}

// Classifier turns raw failures into ClassifiedErrors. The rule list is
// pluggable so hosts with structured collaborator errors can swap in
// their own predicates without touching retry semantics.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier with the default keyword/status rules.
func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewClassifierWithRules returns a classifier using the given rules,
// still defaulting unmatched failures to KindAPI.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

func containsAny(msg string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// DefaultRules is the keyword/status rule set. Order matters:
// authentication before rate-limit ("unauthorized" vs "quota"),
// network before validation ("invalid host" is a DNS failure first).
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind: KindAuthentication,
			Match: func(msg string, code int) bool {
				if code == http.StatusUnauthorized || code == http.StatusForbidden {
					return true
				}
				return containsAny(msg,
					"invalid credentials", "expired session", "session expired",
					"login required", "re-verification", "reverify",
					"unauthorized", "forbidden", "challenge required",
				)
			},
		},
		{
			Kind: KindRateLimit,
			Match: func(msg string, code int) bool {
				if code == http.StatusTooManyRequests {
					return true
				}
				return containsAny(msg,
					"rate limit", "too many requests", "quota exceeded",
					"request limit", "throttled",
				)
			},
		},
		{
			Kind: KindNetwork,
			Match: func(msg string, code int) bool {
				return containsAny(msg,
					"timeout", "timed out", "deadline exceeded",
					"connection refused", "connection reset",
					"no such host", "dns", "network is unreachable",
					"broken pipe", "eof",
				)
			},
		},
		{
			Kind: KindValidation,
			Match: func(msg string, code int) bool {
				if code == http.StatusBadRequest || code == http.StatusUnprocessableEntity {
					return true
				}
				return containsAny(msg,
					"validation", "malformed", "too long", "length limit",
					"exceeds maximum", "required field", "missing field",
					"must not be empty",
				)
			},
		},
	}
}

var retryAfterPattern = regexp.MustCompile(`retry.{0,5}after\D{0,5}(\d+)`)

// Classify maps a raw failure to exactly one kind. Deterministic: the same
// raw failure always classifies identically. An already classified error
// passes through unchanged. A nil error is a caller bug and classifies as
// API to keep the function total.
func (c *Classifier) Classify(err error) *ClassifiedError {
	var existing *ClassifiedError
	if errors.As(err, &existing) {
		return existing
	}

	ce := &ClassifiedError{
		Kind:     KindAPI,
		RaisedAt: time.Now(),
		cause:    err,
	}
	if err == nil {
		ce.Message = "nil error"
		ce.Retryable = true
		return ce
	}

	ce.Message = err.Error()
	msg := strings.ToLower(ce.Message)

	code := 0
	var se *StatusError
	if errors.As(err, &se) {
		code = se.Code
	}

	for _, rule := range c.rules {
		if rule.Match(msg, code) {
			ce.Kind = rule.Kind
			break
		}
	}

	switch ce.Kind {
	case KindAuthentication, KindValidation:
		ce.Retryable = false
	case KindRateLimit:
		ce.Retryable = true
		ce.RetryAfter = extractRetryAfter(msg, se)
	default:
		ce.Retryable = true
	}

	return ce
}

// extractRetryAfter reads a Retry-After hint from the response header or
// from "retry after Ns"-style message text, falling back to the default.
func extractRetryAfter(msg string, se *StatusError) time.Duration {
	if se != nil && se.Header != nil {
		if v := se.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
			if t, err := http.ParseTime(v); err == nil {
				if d := time.Until(t); d > 0 {
					return d
				}
			}
		}
	}
	if m := retryAfterPattern.FindStringSubmatch(msg); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return DefaultRetryAfter
}

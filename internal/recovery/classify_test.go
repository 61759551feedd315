package recovery

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassify_StatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  Kind
		retryable bool
	}{
		{"unauthorized", &StatusError{Code: http.StatusUnauthorized}, KindAuthentication, false},
		{"forbidden", &StatusError{Code: http.StatusForbidden}, KindAuthentication, false},
		{"too many requests", &StatusError{Code: http.StatusTooManyRequests}, KindRateLimit, true},
		{"bad request", &StatusError{Code: http.StatusBadRequest}, KindValidation, false},
		{"unprocessable", &StatusError{Code: http.StatusUnprocessableEntity}, KindValidation, false},
		{"server error", &StatusError{Code: http.StatusInternalServerError}, KindAPI, true},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := c.Classify(tt.err)
			if ce.Kind != tt.wantKind {
				t.Errorf("Classify kind = %s, want %s", ce.Kind, tt.wantKind)
			}
			if ce.Retryable != tt.retryable {
				t.Errorf("Classify retryable = %v, want %v", ce.Retryable, tt.retryable)
			}
		})
	}
}

func TestClassify_Keywords(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"invalid credentials provided", KindAuthentication},
		{"session expired, login required", KindAuthentication},
		{"rate limit exceeded for resource", KindRateLimit},
		{"request quota exceeded", KindRateLimit},
		{"dial tcp: connection refused", KindNetwork},
		{"context deadline exceeded", KindNetwork},
		{"lookup api.example.com: no such host", KindNetwork},
		{"caption too long", KindValidation},
		{"required field missing: text", KindValidation},
		{"something odd happened", KindAPI},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			ce := c.Classify(errors.New(tt.msg))
			if ce.Kind != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.msg, ce.Kind, tt.want)
			}
		})
	}
}

func TestClassify_WrappedStatusError(t *testing.T) {
	err := fmt.Errorf("publish reply: %w", &StatusError{Code: http.StatusUnauthorized})
	ce := NewClassifier().Classify(err)
	if ce.Kind != KindAuthentication {
		t.Errorf("wrapped 401 classified as %s, want %s", ce.Kind, KindAuthentication)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier()
	err := errors.New("connection reset by peer")
	first := c.Classify(err)
	second := c.Classify(err)
	if first.Kind != second.Kind || first.Retryable != second.Retryable {
		t.Errorf("classification not deterministic: %+v vs %+v", first, second)
	}
}

func TestClassify_PassesThroughClassified(t *testing.T) {
	c := NewClassifier()
	original := &ClassifiedError{
		Kind:       KindRateLimit,
		Message:    "request budget exhausted",
		Retryable:  true,
		RetryAfter: 7 * time.Second,
	}
	got := c.Classify(original)
	if got != original {
		t.Fatalf("expected classified error to pass through unchanged, got %+v", got)
	}
}

func TestClassify_RetryAfterHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "30")
	ce := NewClassifier().Classify(&StatusError{Code: http.StatusTooManyRequests, Header: header})
	if ce.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", ce.RetryAfter)
	}
}

func TestClassify_RetryAfterMessage(t *testing.T) {
	ce := NewClassifier().Classify(errors.New("rate limit hit, retry after 12 seconds"))
	if ce.RetryAfter != 12*time.Second {
		t.Errorf("RetryAfter = %v, want 12s", ce.RetryAfter)
	}
}

func TestClassify_RetryAfterDefault(t *testing.T) {
	ce := NewClassifier().Classify(errors.New("too many requests"))
	if ce.RetryAfter != DefaultRetryAfter {
		t.Errorf("RetryAfter = %v, want default %v", ce.RetryAfter, DefaultRetryAfter)
	}
}

func TestClassify_AuthBeforeRateLimit(t *testing.T) {
	// A message matching multiple rules resolves by rule order.
	ce := NewClassifier().Classify(errors.New("unauthorized: request limit policy"))
	if ce.Kind != KindAuthentication {
		t.Errorf("Classify = %s, want %s", ce.Kind, KindAuthentication)
	}
}

func TestClassify_CustomRules(t *testing.T) {
	rules := []Rule{
		{Kind: KindNetwork, Match: func(msg string, code int) bool { return code == 599 }},
	}
	c := NewClassifierWithRules(rules)

	if got := c.Classify(&StatusError{Code: 599}).Kind; got != KindNetwork {
		t.Errorf("custom rule ignored, got %s", got)
	}
	if got := c.Classify(errors.New("unauthorized")).Kind; got != KindAPI {
		t.Errorf("unmatched failure = %s, want default %s", got, KindAPI)
	}
}

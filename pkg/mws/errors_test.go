package mws

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   ErrorClass
	}{
		{status: 400, code: "InvalidParameterValue", want: ErrorClassClient},
		{status: 401, code: "AccessDenied", want: ErrorClassClient},
		{status: 404, want: ErrorClassClient},
		{status: 500, code: "InternalError", want: ErrorClassServer},
		{status: 502, want: ErrorClassServer},
		{status: 503, code: "RequestThrottled", want: ErrorClassThrottled},
		{status: 503, code: "ServiceUnavailable", want: ErrorClassThrottled},
		{status: 400, code: "QuotaExceeded", want: ErrorClassThrottled},
		{status: 200, want: ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status)+"/"+tt.code, func(t *testing.T) {
			if got := classifyStatus(tt.status, tt.code); got != tt.want {
				t.Errorf("classifyStatus(%d, %q) = %q, want %q", tt.status, tt.code, got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassThrottled, true},
		{ErrorClassNetwork, true},
		{"", false},
	}
	for _, tt := range tests {
		if got := shouldRetry(tt.class); got != tt.want {
			t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestAPIError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &APIError{StatusCode: 0, ErrorClass: ErrorClassNetwork, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("APIError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Error() = %q", err.Error())
	}

	err = &APIError{StatusCode: 503, ErrorClass: ErrorClassThrottled, Code: "RequestThrottled", Message: "Request is throttled"}
	want := "MWS throttled error (status 503): RequestThrottled: Request is throttled"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

package mws

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"testing"
)

func TestRFC3986Escape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "abc", want: "abc"},
		{in: "a b", want: "a%20b"},
		{in: "a*b", want: "a%2Ab"},
		{in: "a~b", want: "a~b"},
		{in: "2024-01-15T10:00:00+00:00", want: "2024-01-15T10%3A00%3A00%2B00%3A00"},
		{in: "ä", want: "%C3%A4"},
		{in: "-_.", want: "-_."},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := rfc3986Escape(tt.in); got != tt.want {
				t.Errorf("rfc3986Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCanonicalQuery_SortsByKey(t *testing.T) {
	values := url.Values{
		"SellerId":           {"SELLER1"},
		"Action":             {"GetOrder"},
		"AmazonOrderId.Id.1": {"A B"},
	}

	got := canonicalQuery(values)
	want := "Action=GetOrder&AmazonOrderId.Id.1=A%20B&SellerId=SELLER1"
	if got != want {
		t.Errorf("canonicalQuery() = %q, want %q", got, want)
	}
}

func TestStringToSign(t *testing.T) {
	endpoint, _ := url.Parse("https://MWS-EU.amazonservices.com/Orders/2013-09-01")
	values := url.Values{"B": {"2"}, "A": {"1"}}

	got := stringToSign("post", endpoint, values)
	want := "POST\nmws-eu.amazonservices.com\n/Orders/2013-09-01\nA=1&B=2"
	if got != want {
		t.Errorf("stringToSign() = %q, want %q", got, want)
	}

	bare, _ := url.Parse("http://127.0.0.1:8080")
	got = stringToSign("POST", bare, values)
	want = "POST\n127.0.0.1:8080\n/\nA=1&B=2"
	if got != want {
		t.Errorf("stringToSign() without path = %q, want %q", got, want)
	}
}

func TestSign(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("data"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := sign("secret", "data"); got != want {
		t.Errorf("sign() = %q, want %q", got, want)
	}
	if sign("secret", "data") == sign("other", "data") {
		t.Error("sign() ignores the key")
	}
}

package mws

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// Signature parameters of MWS Signature Version 2.
const (
	SignatureMethod  = "HmacSHA256"
	SignatureVersion = "2"
)

// rfc3986Escape percent-encodes s the way MWS expects: spaces as %20,
// '*' encoded and '~' left alone.
func rfc3986Escape(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "*", "%2A")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

// canonicalQuery renders values sorted by key with RFC 3986 escaping.
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, rfc3986Escape(k)+"="+rfc3986Escape(values.Get(k)))
	}
	return strings.Join(parts, "&")
}

// stringToSign builds the Signature Version 2 string for a request.
func stringToSign(method string, endpoint *url.URL, values url.Values) string {
	path := endpoint.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.Join([]string{
		strings.ToUpper(method),
		strings.ToLower(endpoint.Host),
		path,
		canonicalQuery(values),
	}, "\n")
}

// sign returns the base64 HMAC-SHA256 of data keyed with secret.
func sign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

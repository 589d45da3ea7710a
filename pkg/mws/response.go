package mws

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"time"
)

// Response headers reported by MWS.
const (
	HeaderRequestID      = "x-mws-request-id"
	HeaderTimestamp      = "x-mws-timestamp"
	HeaderQuotaMax       = "x-mws-quota-max"
	HeaderQuotaRemaining = "x-mws-quota-remaining"
	HeaderQuotaResetsOn  = "x-mws-quota-resetsOn"
)

// Response is the raw outcome of a successful MWS call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Metadata   ResponseMetadata
}

// ResponseMetadata carries the request id, server time and quota headers.
// Quota fields are nil when MWS did not report them.
type ResponseMetadata struct {
	RequestID      string
	Timestamp      time.Time
	QuotaMax       *float64
	QuotaRemaining *float64
	QuotaResetsOn  *time.Time
}

// parseMetadata reads response metadata from MWS headers. Malformed
// values are left unset.
func parseMetadata(h http.Header) ResponseMetadata {
	md := ResponseMetadata{RequestID: h.Get(HeaderRequestID)}

	if ts, err := time.Parse(time.RFC3339, h.Get(HeaderTimestamp)); err == nil {
		md.Timestamp = ts
	}
	md.QuotaMax = parseFloatHeader(h, HeaderQuotaMax)
	md.QuotaRemaining = parseFloatHeader(h, HeaderQuotaRemaining)
	if ts, err := time.Parse(time.RFC3339, h.Get(HeaderQuotaResetsOn)); err == nil {
		md.QuotaResetsOn = &ts
	}
	return md
}

func parseFloatHeader(h http.Header, name string) *float64 {
	raw := h.Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// errorResponse is the ErrorResponse document MWS returns on failure.
type errorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
	RequestID string `xml:"RequestID"`
}

// newAPIError builds an APIError from a failed response. A body that is not
// an ErrorResponse document still yields an error classified by status.
func newAPIError(statusCode int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Message:    http.StatusText(statusCode),
		RequestID:  header.Get(HeaderRequestID),
	}

	var doc errorResponse
	if err := xml.Unmarshal(body, &doc); err == nil {
		apiErr.Type = doc.Error.Type
		apiErr.Code = doc.Error.Code
		if doc.Error.Message != "" {
			apiErr.Message = doc.Error.Message
		}
		if doc.RequestID != "" {
			apiErr.RequestID = doc.RequestID
		}
	}

	apiErr.ErrorClass = classifyStatus(statusCode, apiErr.Code)
	return apiErr
}

// Package testutil provides testing utilities for MWS clients.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockMWSResponse defines the behavior for a mock MWS action response.
type MockMWSResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockMWS is a configurable mock MWS endpoint. Requests are dispatched on
// their Action form value.
type MockMWS struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	queues   map[string][]MockMWSResponse

	// Tracking
	RequestCount    int
	Requests        []url.Values
	LastRequestPath string
	LastUserAgent   string
}

// NewMockMWS creates a new mock MWS server.
func NewMockMWS() *MockMWS {
	mock := &MockMWS{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		queues:   make(map[string][]MockMWSResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		action := r.PostForm.Get("Action")

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.PostForm)
		mock.LastRequestPath = r.URL.Path
		mock.LastUserAgent = r.Header.Get("User-Agent")

		handler, exists := mock.handlers[action]
		queued, hasQueue := mock.queues[action]
		if hasQueue && len(queued) > 1 {
			mock.queues[action] = queued[1:]
		}
		mock.mu.Unlock()

		switch {
		case hasQueue && len(queued) > 0:
			writeResponse(w, queued[0])
		case exists:
			handler(w, r)
		default:
			mock.defaultHandler(w, action)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMWS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMWS) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockMWS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastRequestPath = ""
	m.LastUserAgent = ""
}

// SetHandler sets a custom handler for an action.
func (m *MockMWS) SetHandler(action string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[action] = handler
}

// SetResponse configures a fixed response for an action.
func (m *MockMWS) SetResponse(action string, resp MockMWSResponse) {
	m.SetHandler(action, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// QueueResponses makes an action answer with resps in order. The last
// response repeats once the queue is drained.
func (m *MockMWS) QueueResponses(action string, resps ...MockMWSResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[action] = append([]MockMWSResponse(nil), resps...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMWS) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// LastRequest returns the form of the most recent request, or nil.
func (m *MockMWS) LastRequest() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

// RequestAt returns the form of the i-th request, or nil.
func (m *MockMWS) RequestAt(i int) url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.Requests) {
		return nil
	}
	return m.Requests[i]
}

// GetUserAgent returns the User-Agent of the most recent request.
func (m *MockMWS) GetUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastUserAgent
}

// GetRequestPath returns the URL path of the most recent request.
func (m *MockMWS) GetRequestPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestPath
}

func writeResponse(w http.ResponseWriter, resp MockMWSResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// defaultHandler answers with an empty result document for action.
func (m *MockMWS) defaultHandler(w http.ResponseWriter, action string) {
	if action == "" {
		writeResponse(w, NewErrorResponse(http.StatusBadRequest, "Sender", "MissingParameter", "Action is required"))
		return
	}
	writeResponse(w, NewHealthyResponse(fmt.Sprintf(
		"<%[1]sResponse><%[1]sResult></%[1]sResult></%[1]sResponse>", action)))
}

func mwsHeaders(quotaRemaining string) map[string]string {
	now := time.Now().UTC()
	return map[string]string{
		"Content-Type":          "text/xml",
		"x-mws-request-id":      "0c1f9b3e-mock-request",
		"x-mws-timestamp":       now.Format(time.RFC3339),
		"x-mws-quota-max":       "6000.0",
		"x-mws-quota-remaining": quotaRemaining,
		"x-mws-quota-resetsOn":  now.Truncate(time.Hour).Add(time.Hour).Format(time.RFC3339),
	}
}

// NewHealthyResponse creates a 200 OK response with MWS headers.
func NewHealthyResponse(body string) MockMWSResponse {
	return MockMWSResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    mwsHeaders("5999.0"),
	}
}

// NewQuotaResponse creates a 200 OK response reporting the given remaining
// hourly quota.
func NewQuotaResponse(body, quotaRemaining string) MockMWSResponse {
	return MockMWSResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    mwsHeaders(quotaRemaining),
	}
}

// NewErrorResponse creates an ErrorResponse document with the given status.
func NewErrorResponse(status int, errType, code, message string) MockMWSResponse {
	return MockMWSResponse{
		StatusCode: status,
		Body: fmt.Sprintf(`<?xml version="1.0"?>
<ErrorResponse xmlns="https://mws.amazonservices.com/Orders/2013-09-01">
  <Error>
    <Type>%s</Type>
    <Code>%s</Code>
    <Message>%s</Message>
  </Error>
  <RequestID>0c1f9b3e-mock-error</RequestID>
</ErrorResponse>`, errType, code, message),
		Headers: mwsHeaders("5999.0"),
	}
}

// NewThrottledResponse creates a 503 RequestThrottled response.
func NewThrottledResponse() MockMWSResponse {
	return NewErrorResponse(http.StatusServiceUnavailable, "Sender", "RequestThrottled", "Request is throttled")
}

// NewServerErrorResponse creates a 500 InternalError response.
func NewServerErrorResponse() MockMWSResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Receiver", "InternalError", "We encountered an internal error. Please try again.")
}

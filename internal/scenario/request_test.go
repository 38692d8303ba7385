package scenario

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://localhost:8080", "/index.html", "http://localhost:8080/index.html"},
		{"http://localhost:8080/", "//api", "http://localhost:8080/api"},
		{"http://localhost:8080", "api/v1", "http://localhost:8080/api/v1"},
		{"http://localhost:8080", "HTTPS://example.com/x", "HTTPS://example.com/x"},
		{"http://localhost:8080", "", "http://localhost:8080"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveURL(tt.base, tt.path))
	}
}

func TestMainRequest_PayloadCycling(t *testing.T) {
	s := Scenario{
		Path:    "/orders",
		Method:  "POST",
		Headers: map[string]string{"X-Client": "perf"},
		Payloads: []json.RawMessage{
			json.RawMessage(`{"id": 1}`),
			json.RawMessage(`"raw text"`),
			json.RawMessage(`{"headers": {"X-Client": "override"}, "body": {"id": 3}}`),
		},
	}

	first := s.MainRequest("http://h", 0)
	assert.Equal(t, "http://h/orders", first.URL)
	assert.JSONEq(t, `{"id": 1}`, string(first.Body))
	assert.Equal(t, "application/json", first.Headers["Content-Type"])
	assert.Equal(t, "perf", first.Headers["X-Client"])

	second := s.MainRequest("http://h", 1)
	assert.Equal(t, "raw text", string(second.Body))
	assert.NotContains(t, second.Headers, "Content-Type")

	third := s.MainRequest("http://h", 2)
	assert.JSONEq(t, `{"id": 3}`, string(third.Body))
	assert.Equal(t, "override", third.Headers["X-Client"])

	fourth := s.MainRequest("http://h", 3)
	assert.Equal(t, first.Body, fourth.Body)

	assert.Equal(t, "perf", s.Headers["X-Client"], "scenario headers must not be mutated")
}

func TestMainRequest_GetHasNoBody(t *testing.T) {
	s := Scenario{Path: "/", Method: "GET", Payloads: []json.RawMessage{json.RawMessage(`{"a": 1}`)}}

	req := s.MainRequest("http://h", 0)
	assert.Nil(t, req.Body)
	assert.NotContains(t, req.Headers, "Content-Type")
}

func TestMainRequest_KeepsExplicitContentType(t *testing.T) {
	s := Scenario{
		Path:     "/",
		Method:   "PUT",
		Headers:  map[string]string{"content-type": "application/merge-patch+json"},
		Payloads: []json.RawMessage{json.RawMessage(`{"a": 1}`)},
	}

	req := s.MainRequest("http://h", 0)
	assert.Equal(t, "application/merge-patch+json", req.Headers["content-type"])
	assert.NotContains(t, req.Headers, "Content-Type")
}

func TestSignalRequest(t *testing.T) {
	s := Scenario{Method: "POST", Headers: map[string]string{"A": "1"}}
	sig := Signal{Path: "https://other/api", Method: "GET", Headers: map[string]string{"B": "2"}, Body: json.RawMessage(`{"x": 1}`)}

	req := s.SignalRequest("http://h", sig)
	assert.Equal(t, "https://other/api", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, req.Headers)
	assert.Nil(t, req.Body)
}

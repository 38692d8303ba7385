package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/studiowebux/perfgate/internal/loadgen"
)

var absoluteURL = regexp.MustCompile(`(?i)^https?://`)

// ResolveURL joins base and path. Absolute http(s) paths are returned unchanged.
func ResolveURL(base, path string) string {
	if path == "" {
		return base
	}
	if absoluteURL.MatchString(path) {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// URL returns the absolute URL of the scenario's main request
func (s Scenario) URL(base string) string {
	return ResolveURL(base, s.Path)
}

// PayloadFor returns the payload used by an iteration, or nil when none is configured
func (s Scenario) PayloadFor(iteration int) json.RawMessage {
	if len(s.Payloads) == 0 {
		return nil
	}
	return s.Payloads[iteration%len(s.Payloads)]
}

// MainRequest builds the main request of an iteration
func (s Scenario) MainRequest(base string, iteration int) *loadgen.Request {
	return buildRequest(ResolveURL(base, s.Path), s.Method, s.Headers, nil, s.PayloadFor(iteration))
}

// SignalRequest builds the request for one of the scenario's signals
func (s Scenario) SignalRequest(base string, sig Signal) *loadgen.Request {
	method := sig.Method
	if method == "" {
		method = s.Method
	}
	return buildRequest(ResolveURL(base, sig.Path), method, s.Headers, sig.Headers, sig.Body)
}

// buildRequest merges headers and applies a payload. An object payload carrying
// "headers" or "body" overrides those parts; any other object is the body itself.
// Object bodies are JSON encoded. GET and HEAD never carry a body.
func buildRequest(url, method string, headers, overrides map[string]string, payload json.RawMessage) *loadgen.Request {
	method = strings.ToUpper(method)
	if method == "" {
		method = DefaultMethod
	}

	merged := make(map[string]string, len(headers)+len(overrides)+1)
	for k, v := range headers {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	body := decodePayload(payload)
	if obj, ok := body.(map[string]any); ok {
		if h, ok := obj["headers"].(map[string]any); ok {
			for k, v := range h {
				merged[k] = fmt.Sprint(v)
			}
		}
		if b, ok := obj["body"]; ok {
			body = b
		}
	}

	req := &loadgen.Request{Method: method, URL: url, Headers: merged}
	if method == http.MethodGet || method == http.MethodHead || body == nil {
		return req
	}

	switch v := body.(type) {
	case string:
		req.Body = []byte(v)
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return req
		}
		req.Body = encoded
		if !hasHeader(merged, "Content-Type") {
			merged["Content-Type"] = "application/json"
		}
	default:
		encoded, _ := json.Marshal(v)
		req.Body = encoded
	}
	return req
}

func decodePayload(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

package loadgen

import (
	"context"
	"time"
)

// Request describes a single HTTP request issued by a Target
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the timed outcome of one request. Err is set for transport failures,
// in which case StatusCode is 0.
type Response struct {
	StatusCode int
	Duration   time.Duration
	Body       []byte
	Err        error
}

// OK reports whether the request completed with a non-error status
func (r Response) OK() bool {
	return r.Err == nil && r.StatusCode > 0 && r.StatusCode < 400
}

// Requester performs a single request and measures its wall time
type Requester interface {
	Do(ctx context.Context, req *Request) Response
}

// Sample is one measured request as seen by the generator
type Sample struct {
	Duration time.Duration
	OK       bool
}

// DurationMs returns the sample duration in fractional milliseconds
func (s Sample) DurationMs() float64 {
	return float64(s.Duration) / float64(time.Millisecond)
}

// Target issues the requests of one iteration
type Target interface {
	Issue(ctx context.Context, iteration int) []Sample
}

// BuildFunc returns the request for a given iteration index
type BuildFunc func(iteration int) *Request

// Single is a Target issuing exactly one request per iteration
type Single struct {
	Requester Requester
	Build     BuildFunc
}

// Issue implements Target
func (s Single) Issue(ctx context.Context, iteration int) []Sample {
	resp := s.Requester.Do(ctx, s.Build(iteration))
	return []Sample{{Duration: resp.Duration, OK: resp.OK()}}
}

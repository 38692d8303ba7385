package engine

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/studiowebux/perfgate/internal/loadgen"
	"github.com/studiowebux/perfgate/internal/scenario"
)

// MainResource names the main request in check labels
const MainResource = "main"

// Batch issues the main request and every signal of a scenario per iteration
type Batch struct {
	requester loadgen.Requester
	baseURL   string
	scenario  scenario.Scenario
	checks    *Checks
}

// NewBatch creates a batch target. checks may be nil, in which case outcomes are not tallied.
func NewBatch(requester loadgen.Requester, baseURL string, s scenario.Scenario, checks *Checks) *Batch {
	return &Batch{
		requester: requester,
		baseURL:   baseURL,
		scenario:  s,
		checks:    checks,
	}
}

// Issue implements loadgen.Target
func (b *Batch) Issue(ctx context.Context, iteration int) []loadgen.Sample {
	requests := make([]*loadgen.Request, 0, 1+len(b.scenario.Signals))
	requests = append(requests, b.scenario.MainRequest(b.baseURL, iteration))
	for _, sig := range b.scenario.Signals {
		requests = append(requests, b.scenario.SignalRequest(b.baseURL, sig))
	}

	responses := make([]loadgen.Response, len(requests))
	var eg errgroup.Group
	for i, req := range requests {
		eg.Go(func() error {
			responses[i] = b.requester.Do(ctx, req)
			return nil
		})
	}
	_ = eg.Wait()

	b.check(responses)

	count := 1
	if b.scenario.IncludeSignalsInMetrics {
		count = len(responses)
	}
	samples := make([]loadgen.Sample, 0, count)
	for _, resp := range responses[:count] {
		samples = append(samples, loadgen.Sample{Duration: resp.Duration, OK: resp.OK()})
	}
	return samples
}

func (b *Batch) check(responses []loadgen.Response) {
	if b.checks == nil {
		return
	}

	b.checks.Record(MainResource+": status ok", inSuccessRange(responses[0].StatusCode))

	for i, sig := range b.scenario.Signals {
		resp := responses[i+1]
		statusOK := (sig.Status != 0 && resp.StatusCode == sig.Status) || inSuccessRange(resp.StatusCode)
		b.checks.Record(sig.Name+": status ok", statusOK)
		b.checkJSON(sig, resp)
	}
}

func (b *Batch) checkJSON(sig scenario.Signal, resp loadgen.Response) {
	if len(sig.JSONPaths) == 0 {
		return
	}

	var doc any
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		b.checks.Record(sig.Name+": json parsed", false)
		return
	}
	b.checks.Record(sig.Name+": json parsed", true)

	for _, path := range sig.JSONPaths {
		label := sig.Name + ": json " + path
		value, err := lookup(doc, path)
		if err != nil {
			b.checks.Record(label, false)
			continue
		}
		if arr, ok := value.([]any); ok && sig.ArrayMin != nil {
			b.checks.Record(label, len(arr) >= *sig.ArrayMin)
			continue
		}
		b.checks.Record(label, value != nil)
	}
}

func inSuccessRange(status int) bool {
	return status >= 200 && status < 400
}

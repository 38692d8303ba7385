/*
Package loadgen issues fixed-count bursts of HTTP requests with bounded parallelism.

# Overview

A Generator runs `total` iterations of a Target using at most `concurrency` workers.
Workers share one atomic index counter: each worker claims the next index, issues the
iteration and records its samples, until the counter passes `total`. No index is ever
claimed twice and every claimed iteration is awaited.

# Targets and Requesters

The generator does not know how an iteration is performed. A Target issues one iteration
and reports one Sample per request it made:

  - Single: one request per iteration through a Requester
  - engine.Batch: the main request plus its signal requests (see package engine)

A Requester is the capability to perform one request and time it. HTTPRequester is the
production implementation on top of a tuned shared http.Client; tests use fakes.

# Outcomes

A sample is ok when the request completed with 0 < status < 400. Transport errors and
timeouts are not-ok samples that keep their observed duration. Nothing is retried.

When collection is disabled (warmup) samples are passed to the observer only and the
returned Result is empty.
*/
package loadgen

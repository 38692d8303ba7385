/*
Package engine implements the engine run mode: a shared-iterations executor plan
in which every iteration issues a batch of requests.

# Plan

Plan turns scenarios into an ordered list of executors. A scenario with warmup
iterations gets a "<name>__warmup" executor first, sized
max(1, min(concurrency, warmup)) virtual users, followed by its main executor
with `concurrency` virtual users sharing `iterations` iterations.

# Batches

A Batch is a loadgen.Target. Each iteration sends, in parallel:

  - the main request, with payload payloads[i % len(payloads)]
  - one request per signal

Signal samples count toward the scenario's durations and errors only when the
scenario includes signals in its metrics.

# Checks

Each batch records named checks into a Checks tally:

	main: status ok           200 <= status < 400
	<signal>: status ok       status == expected, or 200 <= status < 400
	<signal>: json parsed     body decodes as JSON (only when jsonPaths are set)
	<signal>: json <path>     value present, or array length >= arrayMin

Paths are dotted (data.items.0) or JMESPath expressions. Check failures never
fail the run; they are reported next to the scenario metrics.
*/
package engine

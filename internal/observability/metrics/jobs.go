// Package metrics emits the service's StatsD metrics with consistent names and tags.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/filetrack-api/internal/observability/errors"
	"github.com/target/filetrack-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobOperation captures one job lifecycle call for metric emission.
type JobOperation struct {
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
	// Files is the number of files touched, reported as a gauge when positive.
	Files int
}

// EmitJobOperation emits job.operation counters and timings.
func EmitJobOperation(sink statsd.Sink, in JobOperation) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.operation", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.operation.duration", in.Duration, CloneTags(tags))
	}
	if in.Files > 0 {
		sink.Gauge("job.operation.files", float64(in.Files), CloneTags(tags))
	}
}

// ResultFor maps an error to ResultSuccess or ResultError.
func ResultFor(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// EmitScratchSweep reports how many scratch entries a sweep removed.
func EmitScratchSweep(sink statsd.Sink, removed int, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultFor(err)}
	if removed == 0 && err == nil {
		tags["result"] = ResultNoop
	}
	sink.Count("scratch.sweep", 1, tags)
	sink.Gauge("scratch.sweep.removed", float64(removed), CloneTags(tags))
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}

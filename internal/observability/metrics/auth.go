package metrics

import (
	"time"

	obserrors "github.com/target/helpdesk-portal/internal/observability/errors"
	"github.com/target/helpdesk-portal/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Auth operations.
const (
	OpInit       = "init"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpRevalidate = "revalidate"
	OpRefresh    = "refresh"
)

// Logout reasons.
const (
	ReasonUser   = "user"
	ReasonForced = "forced"
)

// AuthMetric captures details about an auth lifecycle event for metric emission.
type AuthMetric struct {
	Operation string
	Result    string
	// Trigger is what started a refresh: periodic, expiry or manual.
	Trigger string
	// Reason is why a logout happened.
	Reason   string
	Shared   bool
	Duration time.Duration
	Err      error
}

// EmitAuth emits standardised auth lifecycle metrics.
func EmitAuth(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}
	if in.Trigger != "" {
		tags["trigger"] = in.Trigger
	}
	if in.Reason != "" {
		tags["reason"] = in.Reason
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.operation", 1, tags)

	if in.Shared {
		sink.Count("auth.refresh.coalesced", 1, CloneTags(tags))
	}

	if in.Duration > 0 {
		sink.Timing("auth.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

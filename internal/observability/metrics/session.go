package metrics

import (
	"time"

	apperrors "github.com/sprintdeck/sprintdeck-go/internal/errors"
	"github.com/sprintdeck/sprintdeck-go/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultInvalid = "invalid"
	ResultNoop    = "noop"
)

// SessionTransition captures details about a session state change for metric emission.
type SessionTransition struct {
	From     string
	To       string
	Trigger  string
	Duration time.Duration
	Err      error
}

// EmitSessionTransition emits standardised session lifecycle metrics.
func EmitSessionTransition(sink statsd.Sink, in SessionTransition) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"from":    in.From,
		"to":      in.To,
		"trigger": in.Trigger,
	}

	if in.Err != nil {
		if code := apperrors.GetCode(in.Err); code != "" {
			tags["error_code"] = string(code)
		}
	}

	sink.Count("session.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("session.transition_duration", in.Duration, statsd.CloneTags(tags))
	}
}

// EmitMonitorTick emits a monitor revalidation result.
func EmitMonitorTick(sink statsd.Sink, result string, elapsed time.Duration) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": result}
	sink.Count("monitor.tick", 1, tags)
	if elapsed > 0 {
		sink.Timing("monitor.tick_duration", elapsed, statsd.CloneTags(tags))
	}
}

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sprintdeck/sprintdeck-go/internal/errors"
)

type recordedMetric struct {
	name  string
	value int64
	dur   time.Duration
	tags  map[string]string
}

type recordingSink struct {
	counts  []recordedMetric
	timings []recordedMetric
}

func (r *recordingSink) Count(name string, value int64, tags map[string]string) {
	r.counts = append(r.counts, recordedMetric{name: name, value: value, tags: tags})
}

func (r *recordingSink) Gauge(string, float64, map[string]string) {}

func (r *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	r.timings = append(r.timings, recordedMetric{name: name, dur: value, tags: tags})
}

func TestEmitSessionTransition(t *testing.T) {
	sink := &recordingSink{}

	EmitSessionTransition(sink, SessionTransition{
		From:     "initializing",
		To:       "authenticated",
		Trigger:  "init_fetch",
		Duration: 120 * time.Millisecond,
	})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "session.transition", sink.counts[0].name)
	assert.Equal(t, int64(1), sink.counts[0].value)
	assert.Equal(t, "initializing", sink.counts[0].tags["from"])
	assert.Equal(t, "authenticated", sink.counts[0].tags["to"])
	assert.Equal(t, "init_fetch", sink.counts[0].tags["trigger"])
	assert.NotContains(t, sink.counts[0].tags, "error_code")

	require.Len(t, sink.timings, 1)
	assert.Equal(t, "session.transition_duration", sink.timings[0].name)
	assert.Equal(t, 120*time.Millisecond, sink.timings[0].dur)
}

func TestEmitSessionTransition_ErrorCodeTag(t *testing.T) {
	sink := &recordingSink{}

	EmitSessionTransition(sink, SessionTransition{
		From:    "initializing",
		To:      "unauthenticated",
		Trigger: "init_fetch_failed",
		Err:     apperrors.Unauthorized("token rejected"),
	})

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "unauthorized", sink.counts[0].tags["error_code"])
	assert.Empty(t, sink.timings, "no timing without a duration")
}

func TestEmitMonitorTick(t *testing.T) {
	sink := &recordingSink{}

	EmitMonitorTick(sink, ResultInvalid, 30*time.Millisecond)

	require.Len(t, sink.counts, 1)
	assert.Equal(t, "monitor.tick", sink.counts[0].name)
	assert.Equal(t, ResultInvalid, sink.counts[0].tags["result"])

	require.Len(t, sink.timings, 1)
	assert.Equal(t, "monitor.tick_duration", sink.timings[0].name)
}

func TestEmitters_NilSinkIsNoop(t *testing.T) {
	EmitSessionTransition(nil, SessionTransition{From: "a", To: "b"})
	EmitMonitorTick(nil, ResultSuccess, time.Millisecond)
}

package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/events"
	coremetrics "github.com/kilianp07/lec/core/metrics"
	"github.com/kilianp07/lec/internal/eventbus"
)

type captureSink struct {
	coremetrics.NopSink
	mu        sync.Mutex
	prechecks []coremetrics.PrecheckEvent
	peaks     []coremetrics.PeakLoadEvent
}

func (c *captureSink) RecordPrecheckFailure(ev coremetrics.PrecheckEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prechecks = append(c.prechecks, ev)
	return nil
}

func (c *captureSink) RecordPeakLoad(ev coremetrics.PeakLoadEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peaks = append(c.peaks, ev)
	return nil
}

func (c *captureSink) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prechecks), len(c.peaks)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartEventCollector(ctx, bus, sink, nil)

	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	bus.Publish(events.PrecheckFailedEvent{RunID: "r", Kind: "cooling", Hours: []int{2}, Start: start})
	bus.Publish(events.PeakLoadEvent{RunID: "r", Subject: "hub", DailyElecPeak: 5, Start: start})
	bus.Publish("ignored")

	require.Eventually(t, func() bool {
		p, k := sink.counts()
		return p == 1 && k == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, "cooling", sink.prechecks[0].Kind)
	assert.Equal(t, []int{2}, sink.prechecks[0].Hours)
	assert.Equal(t, start, sink.peaks[0].Time)
	assert.Equal(t, 5.0, sink.peaks[0].DailyElecPeak)
	sink.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartEventCollector_StopsOnClose(t *testing.T) {
	bus := eventbus.New()
	done := StartEventCollector(context.Background(), bus, coremetrics.NopSink{}, nil)
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

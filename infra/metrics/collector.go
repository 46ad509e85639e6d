package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/lec/core/events"
	coremetrics "github.com/kilianp07/lec/core/metrics"
	"github.com/kilianp07/lec/infra/logger"
	"github.com/kilianp07/lec/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards runner events
// to the recorders sink implements. It stops when the context is canceled or
// the bus is closed; done is closed once the subscription is released.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) (done <-chan struct{}) {
	ch := make(chan struct{})
	if bus == nil || sink == nil {
		close(ch)
		return ch
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(ch)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := collect(sink, ev); err != nil {
					log.Errorf("metrics collector: %v", err)
				}
			}
		}
	}()
	return ch
}

func collect(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.PrecheckFailedEvent:
		if r, ok := sink.(coremetrics.PrecheckRecorder); ok {
			return r.RecordPrecheckFailure(coremetrics.PrecheckEvent{
				RunID:  e.RunID,
				Kind:   e.Kind,
				Agents: e.Agents,
				Hours:  e.Hours,
				Start:  e.Start,
				Time:   time.Now(),
			})
		}
	case events.PeakLoadEvent:
		if r, ok := sink.(coremetrics.PeakLoadRecorder); ok {
			return r.RecordPeakLoad(coremetrics.PeakLoadEvent{
				RunID:           e.RunID,
				Subject:         e.Subject,
				DailyElecPeak:   e.DailyElecPeak,
				AverageElecPeak: e.AverageElecPeak,
				MonthlyHeat:     e.MonthlyHeat,
				Time:            pointTime(e.Start, time.Now()),
			})
		}
	}
	return nil
}

package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOptimization forwards the result to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOptimization(res OptimizationResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordOptimization(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordSchedule forwards schedules to sinks that support them.
func (m *MultiSink) RecordSchedule(samples []ScheduleSample) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ScheduleRecorder); ok {
			if err := rec.RecordSchedule(samples); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPrecheckFailure forwards pre-check failures.
func (m *MultiSink) RecordPrecheckFailure(ev PrecheckEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PrecheckRecorder); ok {
			if err := rec.RecordPrecheckFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPeakLoad forwards peak-load state.
func (m *MultiSink) RecordPeakLoad(ev PeakLoadEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PeakLoadRecorder); ok {
			if err := rec.RecordPeakLoad(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

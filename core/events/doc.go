// Package events defines the runner events emitted on the event bus.
//
// Available event types:
//   - HorizonSolvedEvent: a horizon was optimized, whatever the solver status
//   - PrecheckFailedEvent: a horizon was rejected before optimization
//   - PeakLoadEvent: the peak-load history after a horizon
package events

package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/lec/core/mqtt"
)

// SchedulePublisher mirrors the core mqtt.SchedulePublisher interface.
type SchedulePublisher = coremqtt.SchedulePublisher

// MockPublisher records schedules in memory and acknowledges them at once.
type MockPublisher struct {
	Messages map[string][]coremqtt.ScheduleMessage
	FailIDs  map[string]bool
	mu       sync.Mutex
	next     int
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages: make(map[string][]coremqtt.ScheduleMessage),
		FailIDs:  make(map[string]bool),
	}
}

// PublishSchedule records the message or returns an error if the agent is
// configured to fail.
func (m *MockPublisher) PublishSchedule(msg coremqtt.ScheduleMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[msg.AgentID] {
		return "", fmt.Errorf("publish failed")
	}
	m.next++
	msg.ScheduleID = fmt.Sprintf("sched-%s-%d", msg.AgentID, m.next)
	m.Messages[msg.AgentID] = append(m.Messages[msg.AgentID], msg)
	return msg.ScheduleID, nil
}

// WaitForAck acknowledges every published schedule immediately.
func (m *MockPublisher) WaitForAck(scheduleID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msgs := range m.Messages {
		for _, msg := range msgs {
			if msg.ScheduleID == scheduleID {
				return true, nil
			}
		}
	}
	return false, fmt.Errorf("unknown schedule %s", scheduleID)
}

// Count returns the number of schedules published for agentID.
func (m *MockPublisher) Count(agentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages[agentID])
}

// Package util provides helpers shared by the integration tests.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker container
// and returns the broker URL and a cleanup function.
//
// AckSchedules plays the agents: it acknowledges every schedule published
// under a topic prefix.
//
// WaitForMetric polls a Prometheus metrics endpoint until the desired metric
// appears in the output.
package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// Default timeouts for helper operations
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// WaitForMetric polls the given metrics URL until the provided substring is
// found in the output or the context is done.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if rerr != nil {
				return fmt.Errorf("read metrics body: %w", rerr)
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
connection_messages true
`

	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		cleanup()
		return "", nil, err
	}

	return broker, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Acker acknowledges schedules like an agent gateway would and remembers
// which agents it heard from.
type Acker struct {
	cli  paho.Client
	mu   sync.Mutex
	seen map[string]int
}

// AckSchedules subscribes to <prefix>/+/schedule and answers every schedule
// on <prefix>/<agent>/ack.
func AckSchedules(broker, prefix string) (*Acker, error) {
	a := &Acker{seen: map[string]int{}}
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("acker")
	a.cli = paho.NewClient(opts)
	if token := a.cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	token := a.cli.Subscribe(prefix+"/+/schedule", 1, func(c paho.Client, msg paho.Message) {
		var m struct {
			ScheduleID string `json:"schedule_id"`
			AgentID    string `json:"agent_id"`
		}
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			return
		}
		a.mu.Lock()
		a.seen[m.AgentID]++
		a.mu.Unlock()
		ack, _ := json.Marshal(map[string]string{"schedule_id": m.ScheduleID})
		c.Publish(fmt.Sprintf("%s/%s/ack", prefix, m.AgentID), 1, false, ack)
	})
	if token.Wait() && token.Error() != nil {
		a.cli.Disconnect(100)
		return nil, token.Error()
	}
	return a, nil
}

// Count returns the number of schedules received for agentID.
func (a *Acker) Count(agentID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen[agentID]
}

// Close disconnects the acker.
func (a *Acker) Close() { a.cli.Disconnect(100) }

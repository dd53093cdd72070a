package notify

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/vinayprograms/agentcam/internal/event"
	"github.com/vinayprograms/agentcam/internal/logging"
)

// subjectPrefix is the root of the published subject hierarchy. Each
// event goes to agentcam.events.<type>.
const subjectPrefix = "agentcam.events"

// NATSPublisher forwards dispatched events to a NATS server as JSON.
// Publish failures are logged and swallowed: notifications are
// cosmetic side channels, not durable delivery.
type NATSPublisher struct {
	conn *nats.Conn
	log  *logging.Logger
}

// ConnectNATS dials a NATS server and returns a publisher bound to it.
func ConnectNATS(url string, logger *logging.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logging.New()
	}
	conn, err := nats.Connect(url, nats.Name("agentcam"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{
		conn: conn,
		log:  logger.WithComponent("notify"),
	}, nil
}

// Publish sends the event to agentcam.events.<type>.
func (p *NATSPublisher) Publish(ev event.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("failed to encode event", map[string]interface{}{"error": err})
		return
	}
	subject := fmt.Sprintf("%s.%s", subjectPrefix, ev.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("failed to publish event", map[string]interface{}{
			"subject": subject,
			"error":   err,
		})
	}
}

// Close drains and closes the underlying connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

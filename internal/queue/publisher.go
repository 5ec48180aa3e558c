package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "net"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher hands reservation events to the broker.
type Publisher interface {
    Publish(ctx context.Context, ev ReservationEvent) error
}

// NopPublisher discards every event.  It is used when AMQP is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }

// AMQPPublisher publishes events as persistent JSON messages to a durable
// queue on the default exchange.  It dials per publish; reservation changes
// are rare enough that a long-lived channel is not worth the reconnect
// bookkeeping.  ctx bounds the whole publish, dial and handshake included.
type AMQPPublisher struct {
    URL    string
    Queue  string
    Logger *slog.Logger
}

// NewAMQPPublisher returns a publisher for url.  An empty queue selects
// DefaultQueue.
func NewAMQPPublisher(url, queue string, logger *slog.Logger) *AMQPPublisher {
    if queue == "" {
        queue = DefaultQueue
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &AMQPPublisher{URL: url, Queue: queue, Logger: logger}
}

// defaultHandshakeTimeout bounds dial and handshake when ctx has no deadline.
const defaultHandshakeTimeout = 5 * time.Second

// dialContext dials with ctx and carries ctx's deadline over to the AMQP
// handshake.  The client clears the deadline once the connection is open.
func dialContext(ctx context.Context) func(network, addr string) (net.Conn, error) {
    return func(network, addr string) (net.Conn, error) {
        deadline, ok := ctx.Deadline()
        if !ok {
            deadline = time.Now().Add(defaultHandshakeTimeout)
        }
        d := net.Dialer{Deadline: deadline}
        conn, err := d.DialContext(ctx, network, addr)
        if err != nil {
            return nil, err
        }
        if err := conn.SetDeadline(deadline); err != nil {
            _ = conn.Close()
            return nil, err
        }
        return conn, nil
    }
}

// Publish implements Publisher.  A missing EventID is filled with a random
// UUID, which also becomes the AMQP MessageId.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.DialConfig(p.URL, amqp.Config{Locale: "en_US", Dial: dialContext(ctx)})
    if err != nil {
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare queue: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Type,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    p.Logger.Debug("event published", "type", ev.Type, "message_id", ev.EventID)
    return nil
}

package queue

import (
    "context"
    "encoding/json"
    "errors"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/recruitment-api/internal/logger"
)

// Publisher sends events to RabbitMQ.  One connection is shared and
// re-dialled lazily after the broker drops it; each publish uses its own
// channel.  Failures are logged and returned so callers can treat events as
// best-effort without interrupting the request.
type Publisher struct {
    url  string
    mu   sync.Mutex
    conn *amqp.Connection
    dial func(string) (*amqp.Connection, error)
}

// NewPublisher returns a publisher for url.  No connection is made until
// the first Publish.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url, dial: amqp.Dial}
}

func (p *Publisher) connection() (*amqp.Connection, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn, nil
    }
    conn, err := p.dial(p.url)
    if err != nil {
        return nil, err
    }
    p.conn = conn
    return conn, nil
}

// Publish declares the event's durable queue (idempotent) and sends ev as a
// persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev ApplicationEvent) error {
    log := logger.FromContext(ctx)
    if ev.Type == "" {
        return errors.New("queue: event type required")
    }
    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }

    conn, err := p.connection()
    if err != nil {
        log.Warn("rabbitmq dial failed", slog.String("event", ev.Type), slog.Any("err", err))
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        log.Warn("rabbitmq channel open failed", slog.String("event", ev.Type), slog.Any("err", err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(ev.Type, true, false, false, false, nil); err != nil {
        log.Warn("rabbitmq queue declare failed", slog.String("event", ev.Type), slog.Any("err", err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    if err := ch.PublishWithContext(ctx,
        "",       // default exchange
        ev.Type,  // routing key = queue name
        false,    // mandatory
        false,    // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    ev.OccurredAt,
            Type:         ev.Type,
            Body:         body,
        },
    ); err != nil {
        log.Warn("rabbitmq publish failed", slog.String("event", ev.Type), slog.Any("err", err))
        return err
    }
    log.Debug("event published", slog.String("event", ev.Type), slog.Uint64("application_id", ev.ApplicationID))
    return nil
}

// Close closes the shared connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() {
        return nil
    }
    return p.conn.Close()
}

// Nop discards events.  It is used when no broker URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ApplicationEvent) error { return nil }

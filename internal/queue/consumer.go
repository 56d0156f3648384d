package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/recruitment-api/internal/logger"
)

// AuditConsumer drains the application queues and appends one line per
// event to a log file.
type AuditConsumer struct {
    URL     string
    LogPath string

    mu sync.Mutex // serialises writes from the per-queue goroutines
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *AuditConsumer) Run(ctx context.Context) error {
    log := logger.L().With(slog.String("component", "audit-consumer"))
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Warn("dial failed", slog.Any("err", err), slog.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", slog.Any("err", err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logger.L().Warn("audit-consumer: set QoS failed", slog.Any("err", err))
    }

    var wg sync.WaitGroup
    errs := make(chan error, len(Queues))
    for _, q := range Queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        wg.Add(1)
        go func(q string, msgs <-chan amqp.Delivery) {
            defer wg.Done()
            for {
                select {
                case <-ctx.Done():
                    return
                case d, ok := <-msgs:
                    if !ok {
                        errs <- fmt.Errorf("deliveries channel for %s closed", q)
                        return
                    }
                    if err := c.Handle(d.Body); err != nil {
                        logger.L().Warn("audit-consumer: handle message failed", slog.String("queue", q), slog.Any("err", err))
                        _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                        continue
                    }
                    _ = d.Ack(false)
                }
            }
        }(q, msgs)
    }

    select {
    case <-ctx.Done():
        wg.Wait()
        return ctx.Err()
    case err := <-errs:
        return err
    }
}

// Handle decodes one message body and appends it to the log file.
func (c *AuditConsumer) Handle(body []byte) error {
    var ev ApplicationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }

    c.mu.Lock()
    defer c.mu.Unlock()

    if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human-friendly log line.
func FormatLine(ev ApplicationEvent) string {
    at := ev.OccurredAt.UTC().Format(time.RFC3339)
    switch ev.Type {
    case ApplicationStatusChanged:
        return fmt.Sprintf("[%s] Application status changed | application_id=%d | listing_id=%d | listing=%q | company=%q | account_id=%d | from=%s | to=%s\n",
            at, ev.ApplicationID, ev.ListingID, ev.ListingTitle, ev.Company, ev.AccountID, ev.PreviousStatus, ev.Status)
    default:
        return fmt.Sprintf("[%s] Application submitted | application_id=%d | listing_id=%d | listing=%q | company=%q | account_id=%d | status=%s\n",
            at, ev.ApplicationID, ev.ListingID, ev.ListingTitle, ev.Company, ev.AccountID, ev.Status)
    }
}

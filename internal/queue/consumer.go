package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// LogFileName is the file, inside the consumer's log directory, that
// receives one line per event.
const LogFileName = "reservation.log"

// Consumer reads reservation events from the broker and appends them to
// <LogDir>/reservation.log.
type Consumer struct {
    URL        string
    Queue      string
    LogDir     string
    Logger     *slog.Logger
    MinBackoff time.Duration
    MaxBackoff time.Duration
}

// NewConsumer returns a consumer with the default backoff of 1s doubling up
// to 30s.
func NewConsumer(url, queue, logDir string, logger *slog.Logger) *Consumer {
    if queue == "" {
        queue = DefaultQueue
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &Consumer{
        URL:        url,
        Queue:      queue,
        LogDir:     logDir,
        Logger:     logger,
        MinBackoff: time.Second,
        MaxBackoff: 30 * time.Second,
    }
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial and
// channel failures are retried with exponential backoff.  It always returns
// ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
    backoff := c.MinBackoff
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Logger.Warn("consumer: dial failed", "err", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            backoff = c.next(backoff)
            continue
        }
        backoff = c.MinBackoff // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Logger.Warn("consumer: consume loop ended, reconnecting", "err", err)
        if !sleepCtx(ctx, backoff) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) next(d time.Duration) time.Duration {
    d *= 2
    if d > c.MaxBackoff {
        d = c.MaxBackoff
    }
    return d
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Logger.Warn("consumer: set QoS failed", "err", err)
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handleMessage(d.Body); err != nil {
                c.Logger.Error("consumer: handle message failed", "err", err, "message_id", d.MessageId)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handleMessage(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }
    if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.LogDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// formatLine renders ev as a single human-friendly line.
func formatLine(ev ReservationEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | exam_idx=%d | member_idx=%d | actor=%s",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ExamIdx, ev.MemberIdx, ev.Actor)
    if ev.Memo != nil {
        b.WriteString(" | memo=" + strconv.Quote(*ev.Memo))
    }
    if ev.ConfirmedAt != nil {
        b.WriteString(" | confirmed_at=" + ev.ConfirmedAt.UTC().Format(time.RFC3339))
    }
    if ev.EventID != "" {
        b.WriteString(" | event_id=" + ev.EventID)
    }
    b.WriteByte('\n')
    return b.String()
}

// sleepCtx waits for d or until ctx is done.  It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

// Package queue contains the background consumer that listens to the
// note.created queue and appends one line per event to the events log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/notes-service/internal/config"
)

// StartNoteConsumer connects to RabbitMQ, declares the events queue
// (durable), and consumes messages until ctx is cancelled.  Each message is
// appended to cfg.LogPath.  Broker failures are logged and retried with a
// capped exponential backoff; undecodable messages are rejected without
// requeue so the consumer keeps running.
func StartNoteConsumer(ctx context.Context, cfg config.EventsConfig, log *zap.Logger) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(cfg.URL)
        if err != nil {
            log.Warn("note-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, cfg, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("note-consumer: consume loop ended; reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg config.EventsConfig, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("note-consumer: set QoS failed", zap.Error(err))
    }

    if err := DeclareQueue(ch, cfg.Queue); err != nil {
        return err
    }

    msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
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
            if err := handleMessage(d.Body, cfg.LogPath); err != nil {
                log.Error("note-consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// DeclareQueue makes sure the durable events queue exists.  Publisher and
// consumer both call it, so whichever starts first creates the queue.
func DeclareQueue(ch *amqp.Channel, name string) error {
    if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare %s: %w", name, err)
    }
    return nil
}

func handleMessage(body []byte, logPath string) error {
    var ev NoteCreatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", filepath.Dir(logPath), err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] Note created | database=%q | collection=%q | text=%s\n",
        ev.CreatedAt, ev.Database, ev.Collection, strconv.Quote(ev.Text))

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// sleepCtx waits for d or until ctx is done; it reports whether the full
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

// Package service publishes note events to RabbitMQ.  Failures are logged
// and returned; callers treat them as best effort because the note is
// already stored by the time an event goes out.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/notes-service/internal/config"
    "github.com/iliyamo/notes-service/internal/queue"
)

// NotePublisher sends NoteCreatedEvents to the configured queue through the
// default exchange.  It dials per event, so a broker restart never leaves
// it holding a dead channel.
type NotePublisher struct {
    cfg config.EventsConfig
    log *zap.Logger
}

// NewNotePublisher returns a publisher for cfg.
func NewNotePublisher(cfg config.EventsConfig, log *zap.Logger) *NotePublisher {
    return &NotePublisher{cfg: cfg, log: log}
}

// PublishNoteCreated sends event as a persistent JSON message.
func (p *NotePublisher) PublishNoteCreated(ctx context.Context, event queue.NoteCreatedEvent) error {
    if err := p.publish(ctx, event); err != nil {
        p.log.Warn("rabbitmq: note.created not published", zap.String("queue", p.cfg.Queue), zap.Error(err))
        return err
    }
    return nil
}

func (p *NotePublisher) publish(ctx context.Context, event queue.NoteCreatedEvent) error {
    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.Dial(p.cfg.URL)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := queue.DeclareQueue(ch, p.cfg.Queue); err != nil {
        return err
    }

    // The queue name doubles as the routing key on the default exchange.
    return ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}

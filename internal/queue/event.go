// Package queue defines message payloads exchanged over the message broker.
package queue

// NoteCreatedEvent is published after a note has been inserted.  It carries
// enough information for downstream consumers to log or index the note
// without querying the database.
type NoteCreatedEvent struct {
    Text       string `json:"text"`
    Database   string `json:"database"`
    Collection string `json:"collection"`
    CreatedAt  string `json:"created_at"` // RFC3339, UTC
}

// Package handler exposes HTTP handlers for the notes API.
// This file defines the create and list handlers.  Each performs exactly
// one database call and maps its outcome to an HTTP response; database
// failures are reported as plain text 500s carrying the driver's message.

package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/notes-service/internal/model"
    "github.com/iliyamo/notes-service/internal/queue"
    "github.com/iliyamo/notes-service/internal/repository"
)

// NoteStore is the persistence the handlers need.  *repository.NoteRepo
// implements it.
type NoteStore interface {
    Insert(ctx context.Context, text string) error
    ListAll(ctx context.Context) ([]model.Note, error)
}

// EventPublisher announces newly created notes.
type EventPublisher interface {
    PublishNoteCreated(ctx context.Context, event queue.NoteCreatedEvent) error
}

// NoteHandler aggregates the dependencies of the notes endpoints.  It is
// built once at startup and shared by every request.
type NoteHandler struct {
    Repo       NoteStore       // provides access to the notes collection
    Events     EventPublisher  // optional; nil disables note.created events
    Database   string          // database name, copied into events
    Collection string          // collection name, copied into events
    Log        *zap.Logger
}

// createNoteRequest is the body of POST /notes.  Text is a pointer so a
// missing field can be told apart from an empty string.
type createNoteRequest struct {
    Text *string `json:"text"`
}

// publishTimeout bounds how long a create waits on the broker.
const publishTimeout = 3 * time.Second

// CreateNote inserts a note and echoes it back with 201 Created.
func (h *NoteHandler) CreateNote(c echo.Context) error {
    var req createNoteRequest
    if err := c.Bind(&req); err != nil {
        return err // echo reports malformed bodies as 400 (or 415 without a JSON content type)
    }
    if req.Text == nil {
        return echo.NewHTTPError(http.StatusBadRequest, "missing field: text")
    }

    ctx := c.Request().Context()
    if err := h.Repo.Insert(ctx, *req.Text); err != nil {
        return c.String(http.StatusInternalServerError, "DB insert error: "+err.Error())
    }

    h.publishCreated(ctx, *req.Text)
    return c.JSON(http.StatusCreated, model.Note{Text: *req.Text})
}

// ListNotes returns every note as a JSON array, in storage order.
func (h *NoteHandler) ListNotes(c echo.Context) error {
    notes, err := h.Repo.ListAll(c.Request().Context())
    if err != nil {
        prefix := "DB find error: "
        if repository.FailedOp(err) == repository.OpCursor {
            prefix = "Cursor error: "
        }
        return c.String(http.StatusInternalServerError, prefix+err.Error())
    }
    if notes == nil {
        notes = []model.Note{} // encode as [] rather than null
    }
    return c.JSON(http.StatusOK, notes)
}

// publishCreated sends the note.created event.  Failures are logged only;
// the note is already stored.
func (h *NoteHandler) publishCreated(ctx context.Context, text string) {
    if h.Events == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
    defer cancel()
    ev := queue.NoteCreatedEvent{
        Text:       text,
        Database:   h.Database,
        Collection: h.Collection,
        CreatedAt:  time.Now().UTC().Format(time.RFC3339),
    }
    if err := h.Events.PublishNoteCreated(ctx, ev); err != nil && h.Log != nil {
        h.Log.Warn("note.created publish failed", zap.Error(err))
    }
}

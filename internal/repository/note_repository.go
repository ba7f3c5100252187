// Package repository contains data access logic separated from HTTP handlers.
// This file defines the note repository on top of a single MongoDB
// collection.  Notes are stored as one-field documents {text: <string>}.
package repository

import (
	"context" // context carries request cancellation into the driver

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/notes-service/internal/model"
)

// Collection is the subset of *mongo.Collection the repository uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// NoteRepo encapsulates all database calls related to notes.  The
// underlying collection is safe for concurrent use, so one NoteRepo is
// shared by every request.
type NoteRepo struct {
	coll Collection // coll is the notes collection
}

// NewNoteRepo constructs a NoteRepo with the provided collection handle.
func NewNoteRepo(coll Collection) *NoteRepo {
	return &NoteRepo{coll: coll}
}

// Insert stores a new note document.
func (r *NoteRepo) Insert(ctx context.Context, text string) error {
	if _, err := r.coll.InsertOne(ctx, bson.D{{Key: "text", Value: text}}); err != nil {
		return &OpError{Op: OpInsert, Err: err}
	}
	return nil
}

// ListAll returns every note in storage order.  Documents without a string
// text field are skipped.  The cursor is drained before returning; on any
// error the collected notes are discarded.
func (r *NoteRepo) ListAll(ctx context.Context) ([]model.Note, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, &OpError{Op: OpFind, Err: err}
	}
	defer cur.Close(ctx)

	notes := make([]model.Note, 0)
	for cur.Next(ctx) {
		if text, ok := noteText(cur.Current); ok {
			notes = append(notes, model.Note{Text: text})
		}
	}
	if err := cur.Err(); err != nil {
		return nil, &OpError{Op: OpCursor, Err: err}
	}
	return notes, nil
}

// noteText extracts the text field when it is present and a BSON string.
func noteText(doc bson.Raw) (string, bool) {
	v, err := doc.LookupErr("text")
	if err != nil || v.Type != bsontype.String {
		return "", false
	}
	return v.StringValueOK()
}

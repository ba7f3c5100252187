package model

// Note is a persisted record consisting solely of a text field.  This
// struct doubles as the JSON request/response body of the notes API and
// the BSON document stored in the collection.  MongoDB assigns an _id on
// insert; it is never read back or returned to clients.
type Note struct {
    Text string `json:"text" bson:"text"`
}

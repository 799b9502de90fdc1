package model

import "time"

// RenderTarget identifies the message a session edits in place.
type RenderTarget struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// DataRequest is set while the current act waits for customer text.
type DataRequest struct {
	Type     DataType `json:"type"`
	Validate bool     `json:"validate"`
}

// Session is the live execution state of one customer's sell process.
// It references its scenario by name; the graph itself is never copied.
type Session struct {
	ID           string            `json:"id"`
	Customer     int64             `json:"customer"`
	Scenario     string            `json:"scenario"`
	Item         SessionItem       `json:"item"`
	OrderID      int64             `json:"order_id"`
	CurrentStep  int               `json:"current_step"`
	PreviousStep int               `json:"previous_step"`
	Collected    map[string]string `json:"collected"`
	Pending      *DataRequest      `json:"pending,omitempty"`
	Target       RenderTarget      `json:"target"`
	StartedAt    time.Time         `json:"started_at"`
}

// SessionItem is the item snapshot taken when the session opened.
type SessionItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Discount int    `json:"discount"`
}

// Dialogue is the per-customer sell state: NoSession or AwaitingAct.
type Dialogue interface{ isDialogue() }

// NoSession means the customer has no sell process in flight.
type NoSession struct{}

// AwaitingAct means the customer is on Session.CurrentStep of a live session.
type AwaitingAct struct{ Session *Session }

func (NoSession) isDialogue()   {}
func (AwaitingAct) isDialogue() {}

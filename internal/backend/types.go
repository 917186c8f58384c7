package backend

import "errors"

// ErrStatus is returned when the backend answers with a non-2xx status.
var ErrStatus = errors.New("unexpected backend status")

type ChatRequest struct {
	CustomerID string  `json:"customer_id"`
	Text       string  `json:"text"`
	Context    Context `json:"context"`
}

type ChatReply struct {
	Reply     string  `json:"reply"`
	Context   Context `json:"context"`
	PDFBase64 string  `json:"pdf_base64,omitempty"`
}

// Event is one entry of the backend event feed. Older backends use "type"
// instead of "event_type".
type Event struct {
	EventType string `json:"event_type,omitempty"`
	Type      string `json:"type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Identifier returns event_type, falling back to type.
func (e Event) Identifier() string {
	if e.EventType != "" {
		return e.EventType
	}

	return e.Type
}

type eventsReply struct {
	Events []Event `json:"events"`
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type sendOTPReply struct {
	Status  string `json:"status"`
	DemoOTP string `json:"demo_otp"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyOTPReply struct {
	Verified bool `json:"verified"`
}

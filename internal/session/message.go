package session

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Attachment describes a file the user supplied and the keyword it was sent as.
type Attachment struct {
	Name        string
	MediaKind   string
	TriggerSent string
}

// Message is one transcript entry. Messages are never edited after append.
type Message struct {
	Sender     Sender
	Text       string
	Timestamp  time.Time
	Attachment *Attachment

	// DocumentName and DocumentPayload carry file bytes: the user's upload, or
	// a sanction letter returned by the backend.
	DocumentName    string
	DocumentPayload []byte
}

func (m Message) HasDocument() bool {
	return len(m.DocumentPayload) > 0
}

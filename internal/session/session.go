// Package session owns one applicant conversation: the transcript, the
// backend context bag, the onboarding state and the activity log.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/gratefultolord/loan_intake_bot/internal/backend"
	"github.com/gratefultolord/loan_intake_bot/internal/customer"
	"github.com/gratefultolord/loan_intake_bot/internal/documents"
	"github.com/gratefultolord/loan_intake_bot/internal/events"
	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
	"github.com/gratefultolord/loan_intake_bot/internal/otp"
)

// ErrBusy is returned when an action arrives while a previous one is still
// waiting on the network.
var ErrBusy = errors.New("session: previous request still in flight")

const (
	msgChatFailed   = "Sorry, there was an error. Please try again."
	msgUploadFailed = "Sorry, there was an error uploading the file. Please try again."
)

// Backend is the part of the decision service a session talks to.
type Backend interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatReply, error)
	UploadSalarySlip(ctx context.Context, customerID, fileName string, data []byte) error
	Events(ctx context.Context, customerID string) ([]backend.Event, error)
}

type Options struct {
	Backend    Backend
	OTP        otp.Client
	Customers  []customer.Customer
	Logger     *zap.Logger
	FallbackID string

	// CustomerID skips onboarding and binds the session up front.
	CustomerID string

	Clock func() time.Time
}

// Document is a file the user attaches.
type Document struct {
	Name      string
	MediaKind string
	Data      []byte
}

type Session struct {
	id         string
	backend    Backend
	machine    *onboarding.Machine
	customers  []customer.Customer
	fallbackID string
	logger     *zap.Logger
	now        func() time.Time

	inflight *semaphore.Weighted

	// mu guards the fields below. Only the holder of inflight mutates them,
	// so that goroutine reads them without the lock.
	mu       sync.RWMutex
	state    onboarding.State
	messages []Message
	context  backend.Context
	activity events.Log
}

func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	id := uuid.NewString()
	s := &Session{
		id:         id,
		backend:    opts.Backend,
		machine:    onboarding.NewMachine(opts.OTP, opts.Customers, opts.Logger),
		customers:  opts.Customers,
		fallbackID: opts.FallbackID,
		logger:     opts.Logger.Named("session").With(zap.String("session_id", id)),
		now:        opts.Clock,
		inflight:   semaphore.NewWeighted(1),
		state:      onboarding.NewState(),
	}

	if opts.CustomerID != "" {
		s.state = onboarding.BoundState(opts.CustomerID)
	}

	for _, text := range onboarding.Greeting(s.state.Done()) {
		s.appendAssistant(text)
	}

	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Stage() onboarding.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Stage
}

func (s *Session) State() onboarding.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Messages returns a copy of the transcript in arrival order.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)

	return out
}

func (s *Session) Activity() []events.ProcessEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activity.Entries()
}

// Context returns a copy of the latest server context.
func (s *Session) Context() backend.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.context.Clone()
}

// Handle processes one line of user input and returns the messages it added.
// While onboarding is active the input answers the current question;
// afterwards it is relayed to the backend.
func (s *Session) Handle(ctx context.Context, input string) ([]Message, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, nil
	}

	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(1)

	if !s.state.Done() {
		return s.advance(ctx, text), nil
	}

	return s.relay(ctx, text, s.customerID(text)), nil
}

// Proceed nudges the backend forward with the keyword its current stage expects.
func (s *Session) Proceed(ctx context.Context) ([]Message, error) {
	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(1)

	keyword := proceedKeyword(s.context)

	return s.relay(ctx, keyword, s.customerID(keyword)), nil
}

// Attach records a user document and tells the backend which category it
// satisfies. Only an outstanding salary slip is uploaded as bytes.
func (s *Session) Attach(ctx context.Context, doc Document) ([]Message, error) {
	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(1)

	start := len(s.messages)
	customerID := s.customerID("")
	trigger := documents.SelectTrigger(s.context)

	s.append(Message{
		Sender:    SenderUser,
		Text:      fmt.Sprintf("Uploaded file: %s", doc.Name),
		Timestamp: s.now(),
		Attachment: &Attachment{
			Name:        doc.Name,
			MediaKind:   doc.MediaKind,
			TriggerSent: trigger,
		},
		DocumentName:    doc.Name,
		DocumentPayload: doc.Data,
	})

	if documents.RequiresUpload(s.context, trigger) {
		if err := s.backend.UploadSalarySlip(ctx, customerID, doc.Name, doc.Data); err != nil {
			s.logger.Warn("salary slip upload failed", zap.String("customer_id", customerID), zap.Error(err))
			s.appendAssistant(msgUploadFailed)
			return s.since(start), nil
		}
	}

	s.relay(ctx, trigger, customerID)

	return s.since(start), nil
}

// RefreshEvents pulls the backend event feed and appends each entry to the
// activity log. Failures are logged and leave the log untouched.
func (s *Session) RefreshEvents(ctx context.Context) ([]events.ProcessEvent, error) {
	if !s.inflight.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer s.inflight.Release(1)

	feed, err := s.backend.Events(ctx, s.customerID(""))
	if err != nil {
		s.logger.Warn("event feed unavailable", zap.Error(err))
		return nil, nil
	}

	added := make([]events.ProcessEvent, 0, len(feed))
	for _, ev := range feed {
		added = append(added, events.Translate(ev, s.now()))
	}

	s.mu.Lock()
	for _, pe := range added {
		s.activity.Append(pe)
	}
	s.mu.Unlock()

	return added, nil
}

func (s *Session) advance(ctx context.Context, text string) []Message {
	start := len(s.messages)
	s.appendUser(text)

	next, replies := s.machine.Advance(ctx, s.state, text)
	if next.Stage != s.state.Stage {
		s.logger.Debug("onboarding transition",
			zap.String("from", string(s.state.Stage)),
			zap.String("to", string(next.Stage)))
	}
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	for _, r := range replies {
		s.appendAssistant(r)
	}

	return s.since(start)
}

// relay sends text to the backend. On any failure the context is kept and an
// apology is appended instead of a reply.
func (s *Session) relay(ctx context.Context, text, customerID string) []Message {
	start := len(s.messages)
	s.appendUser(text)

	s.mu.Lock()
	s.activity.Append(events.Processing(s.now()))
	s.mu.Unlock()

	reply, err := s.backend.Chat(ctx, backend.ChatRequest{
		CustomerID: customerID,
		Text:       text,
		Context:    outgoingContext(s.context, s.state),
	})
	if err != nil {
		s.logger.Warn("chat failed", zap.String("customer_id", customerID), zap.Error(err))
		s.appendAssistant(msgChatFailed)
		return s.since(start)
	}

	msg := Message{Sender: SenderAssistant, Text: reply.Reply, Timestamp: s.now()}
	if reply.PDFBase64 != "" {
		pdf, err := base64.StdEncoding.DecodeString(reply.PDFBase64)
		if err != nil {
			s.logger.Warn("discarding undecodable sanction letter", zap.Error(err))
		} else {
			msg.DocumentName = fmt.Sprintf("sanction_letter_%s.pdf", customerID)
			msg.DocumentPayload = pdf
		}
	}

	s.mu.Lock()
	s.context = reply.Context
	s.messages = append(s.messages, msg)
	s.activity.Merge(events.Synthesize(s.context, s.now()))
	if stage := s.context.String("stage"); stage != "" {
		s.activity.Append(events.Translate(events.StageEvent(stage), s.now()))
	}
	s.mu.Unlock()

	return s.since(start)
}

// customerID prefers the identity bound during onboarding; the free-text guess
// is only a default and is never stored.
func (s *Session) customerID(text string) string {
	if s.state.CustomerID != "" {
		return s.state.CustomerID
	}

	return customer.ResolveFallback(text, s.customers, s.fallbackID)
}

func (s *Session) appendUser(text string) {
	s.append(Message{Sender: SenderUser, Text: text, Timestamp: s.now()})
}

func (s *Session) appendAssistant(text string) {
	s.append(Message{Sender: SenderAssistant, Text: text, Timestamp: s.now()})
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
}

func (s *Session) since(start int) []Message {
	out := make([]Message, len(s.messages)-start)
	copy(out, s.messages[start:])

	return out
}

package session

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/gratefultolord/loan_intake_bot/internal/backend"
	"github.com/gratefultolord/loan_intake_bot/internal/customer"
	"github.com/gratefultolord/loan_intake_bot/internal/documents"
	"github.com/gratefultolord/loan_intake_bot/internal/events"
	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
	"github.com/gratefultolord/loan_intake_bot/internal/otp"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var directory = []customer.Customer{
	{ID: "C001", Name: "Aarav Mehta", Mobile: "9876543210", PreapprovedLimit: pointer.ToFloat64(500000)},
	{ID: "C004", Name: "Priya Sharma", Mobile: "9123456789", PreapprovedLimit: pointer.ToFloat64(250000)},
}

type upload struct {
	customerID string
	name       string
	data       []byte
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []backend.ChatRequest
	uploads  []upload
	replies  []*backend.ChatReply
	chatErr  error
	upErr    error
	feed     []backend.Event

	// block, when set, holds Chat until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatReply, error) {
	if f.block != nil {
		close(f.entered)
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if f.chatErr != nil {
		return nil, f.chatErr
	}

	if len(f.replies) == 0 {
		return &backend.ChatReply{Reply: "ok", Context: req.Context}, nil
	}

	r := f.replies[0]
	f.replies = f.replies[1:]

	return r, nil
}

func (f *fakeBackend) UploadSalarySlip(ctx context.Context, customerID, fileName string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upErr != nil {
		return f.upErr
	}
	f.uploads = append(f.uploads, upload{customerID, fileName, data})
	return nil
}

func (f *fakeBackend) Events(ctx context.Context, customerID string) ([]backend.Event, error) {
	return f.feed, nil
}

func fixedOTP(code string) *otp.Service {
	return otp.NewService(time.Minute, true, otp.WithGenerator(func() (string, error) { return code, nil }))
}

func newSession(b *fakeBackend, opts ...func(*Options)) *Session {
	o := Options{
		Backend:    b,
		OTP:        fixedOTP("246810"),
		Customers:  directory,
		Logger:     zap.NewNop(),
		FallbackID: "C001",
		Clock:      func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) },
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

func mustHandle(t *testing.T, s *Session, inputs ...string) []Message {
	t.Helper()
	var all []Message
	for _, in := range inputs {
		out, err := s.Handle(context.Background(), in)
		require.NoError(t, err)
		all = append(all, out...)
	}
	return all
}

func TestNew_Greets(t *testing.T) {
	s := newSession(&fakeBackend{})
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
	assert.Equal(t, "Please tell me your full name.", msgs[1].Text)
	assert.Equal(t, onboarding.StageAskName, s.Stage())
	assert.NotEmpty(t, s.ID())
}

func TestNew_BoundCustomerSkipsOnboarding(t *testing.T) {
	b := &fakeBackend{}
	s := newSession(b, func(o *Options) { o.CustomerID = "C007" })
	assert.Equal(t, onboarding.StageDone, s.Stage())

	mustHandle(t, s, "I need 2 lakh")
	require.Len(t, b.requests, 1)
	assert.Equal(t, "C007", b.requests[0].CustomerID)
}

func TestHandle_OnboardingAppendsUserThenPrompt(t *testing.T) {
	b := &fakeBackend{}
	s := newSession(b)

	out := mustHandle(t, s, "  Priya Sharma  ")
	require.Len(t, out, 2)
	assert.Equal(t, SenderUser, out[0].Sender)
	assert.Equal(t, "Priya Sharma", out[0].Text)
	assert.Equal(t, SenderAssistant, out[1].Sender)
	assert.Empty(t, b.requests, "onboarding never reaches the chat backend")
}

func TestHandle_IgnoresBlankInput(t *testing.T) {
	s := newSession(&fakeBackend{})
	out, err := s.Handle(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Len(t, s.Messages(), 2)
}

func TestHandle_EndToEndKnownCustomerThenChat(t *testing.T) {
	b := &fakeBackend{replies: []*backend.ChatReply{{
		Reply: "Great, 3 lakh for 36 months.",
		Context: backend.Context{
			"session_id":        "srv-1",
			"customer_id":       "C004",
			"preapproved_offer": map[string]any{"limit": 250000.0},
			"stage":             "SALES",
			"customer_name":     "Server Name",
		},
	}}}
	s := newSession(b)

	out := mustHandle(t, s, "Priya Sharma", "9123456789", "priya@x.com", "246810")
	assert.Equal(t, onboarding.StageDone, s.Stage())

	limits := 0
	for _, m := range out {
		if m.Sender == SenderAssistant && strings.Contains(m.Text, "pre-approved limit") {
			limits++
		}
	}
	assert.Equal(t, 1, limits)

	out = mustHandle(t, s, "I need a 3 lakh loan for 36 months")
	require.Len(t, out, 2)
	assert.Equal(t, "Great, 3 lakh for 36 months.", out[1].Text)

	require.Len(t, b.requests, 1)
	req := b.requests[0]
	assert.Equal(t, "C004", req.CustomerID)
	assert.Equal(t, "Priya Sharma", req.Context["customer_name"])
	assert.Equal(t, "9123456789", req.Context["customer_mobile"])
	assert.Equal(t, "priya@x.com", req.Context["customer_email"])
	assert.Equal(t, true, req.Context["email_verified"])
	assert.NotContains(t, req.Context, "life_insurance")

	assert.Equal(t, "SALES", s.Context().String("stage"))

	var msgs []string
	for _, e := range s.Activity() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{
		events.ProcessingMessage,
		"Session initiated",
		"Customer ID verified",
		"Fetching pre-approved offers",
		"Pre-approved offer found",
		"STAGE_SALES",
	}, msgs)
}

func TestRelay_LocalFieldsOverrideOnlyWhenSet(t *testing.T) {
	b := &fakeBackend{replies: []*backend.ChatReply{
		{Reply: "r1", Context: backend.Context{
			"customer_name":    "Echoed",
			"customer_address": "Server Address",
			"email_verified":   true,
			"opaque":           []any{"kept"},
		}},
		{Reply: "r2", Context: backend.Context{}},
	}}
	s := newSession(b, func(o *Options) { o.CustomerID = "C009" })

	mustHandle(t, s, "first", "second")
	require.Len(t, b.requests, 2)

	second := b.requests[1].Context
	assert.Equal(t, "Echoed", second["customer_name"], "no local name captured")
	assert.Equal(t, "Server Address", second["customer_address"])
	assert.Equal(t, true, second["email_verified"])
	assert.Equal(t, []any{"kept"}, second["opaque"])
}

func TestRelay_FailureKeepsContextAndApologises(t *testing.T) {
	b := &fakeBackend{replies: []*backend.ChatReply{{Reply: "r1", Context: backend.Context{"stage": "SALES"}}}}
	s := newSession(b, func(o *Options) { o.CustomerID = "C009" })
	mustHandle(t, s, "hello")

	b.chatErr = errors.New("503")
	out := mustHandle(t, s, "again")
	require.Len(t, out, 2)
	assert.Equal(t, msgChatFailed, out[1].Text)
	assert.Equal(t, "SALES", s.Context().String("stage"))
	assert.Equal(t, onboarding.StageDone, s.Stage())
}

func TestRelay_SanctionLetterAttached(t *testing.T) {
	pdf := []byte("%PDF-1.7 sanction")
	b := &fakeBackend{replies: []*backend.ChatReply{{
		Reply:     "Here is your letter.",
		Context:   backend.Context{"loan_id": "L-1"},
		PDFBase64: base64.StdEncoding.EncodeToString(pdf),
	}}}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })

	out := mustHandle(t, s, "confirm")
	reply := out[len(out)-1]
	require.True(t, reply.HasDocument())
	assert.Equal(t, "sanction_letter_C004.pdf", reply.DocumentName)
	assert.Equal(t, pdf, reply.DocumentPayload)
}

func TestRelay_FallbackIdentityIsNotBound(t *testing.T) {
	b := &fakeBackend{}
	s := newSession(b)
	s.state = onboarding.State{Stage: onboarding.StageDone}

	mustHandle(t, s, "this is priya sharma", "hello")
	require.Len(t, b.requests, 2)
	assert.Equal(t, "C004", b.requests[0].CustomerID)
	assert.Equal(t, "C001", b.requests[1].CustomerID, "guess is not remembered")
	assert.Empty(t, s.State().CustomerID)
}

func TestAttach_SalarySlipUploadsBytes(t *testing.T) {
	b := &fakeBackend{replies: []*backend.ChatReply{
		{Reply: "ctx", Context: backend.Context{"bank_statement_uploaded": true, "id_address_proof_uploaded": true, "employment_type": "Salaried"}},
		{Reply: "Salary slip received.", Context: backend.Context{"salary_slip_uploaded": true}},
	}}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })
	mustHandle(t, s, "start")

	out, err := s.Attach(context.Background(), Document{Name: "slip.pdf", MediaKind: "application/pdf", Data: []byte("pdf")})
	require.NoError(t, err)

	require.Len(t, b.uploads, 1)
	assert.Equal(t, upload{"C004", "slip.pdf", []byte("pdf")}, b.uploads[0])

	require.Len(t, out, 3)
	assert.Equal(t, "Uploaded file: slip.pdf", out[0].Text)
	require.NotNil(t, out[0].Attachment)
	assert.Equal(t, documents.TriggerSalarySlip, out[0].Attachment.TriggerSent)
	assert.Equal(t, documents.TriggerSalarySlip, out[1].Text)
	assert.Equal(t, "Salary slip received.", out[2].Text)
}

func TestAttach_OtherDocumentsSendKeywordOnly(t *testing.T) {
	b := &fakeBackend{}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })

	out, err := s.Attach(context.Background(), Document{Name: "statement.pdf", Data: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, b.uploads)
	require.Len(t, b.requests, 1)
	assert.Equal(t, documents.TriggerBankStatement, b.requests[0].Text)
	assert.Equal(t, documents.TriggerBankStatement, out[0].Attachment.TriggerSent)
}

func TestAttach_UploadFailureStopsBeforeChat(t *testing.T) {
	b := &fakeBackend{
		replies: []*backend.ChatReply{{Reply: "ctx", Context: backend.Context{"bank_statement_uploaded": true, "id_address_proof_uploaded": true}}},
	}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })
	mustHandle(t, s, "start")

	b.upErr = errors.New("413")
	out, err := s.Attach(context.Background(), Document{Name: "slip.png", Data: []byte("img")})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, msgUploadFailed, out[1].Text)
	assert.Len(t, b.requests, 1, "no keyword sent after a failed upload")
}

func TestProceed_Keyword(t *testing.T) {
	b := &fakeBackend{replies: []*backend.ChatReply{
		{Reply: "pick", Context: backend.Context{"chosen_offer": map[string]any{"amount": 1.0}}},
		{Reply: "done", Context: backend.Context{"chosen_offer": true, "sales_done": true}},
	}}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })

	_, err := s.Proceed(context.Background())
	require.NoError(t, err)
	_, err = s.Proceed(context.Background())
	require.NoError(t, err)
	_, err = s.Proceed(context.Background())
	require.NoError(t, err)

	require.Len(t, b.requests, 3)
	assert.Equal(t, "confirm", b.requests[0].Text)
	assert.Equal(t, "yes", b.requests[1].Text)
	assert.Equal(t, "confirm", b.requests[2].Text)
}

func TestRefreshEvents(t *testing.T) {
	b := &fakeBackend{feed: []backend.Event{{EventType: "SALES_UPDATE"}, {Type: "mystery"}}}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })

	added, err := s.RefreshEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "Processing loan request", added[0].Message)
	assert.Equal(t, "mystery", added[1].Message)
	assert.Len(t, s.Activity(), 2)
}

func TestSession_RefusesSecondCallWhileInFlight(t *testing.T) {
	b := &fakeBackend{block: make(chan struct{}), entered: make(chan struct{})}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })

	done := make(chan error, 1)
	go func() {
		_, err := s.Handle(context.Background(), "first")
		done <- err
	}()

	<-b.entered
	_, err := s.Handle(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Attach(context.Background(), Document{Name: "a.pdf"})
	assert.ErrorIs(t, err, ErrBusy)

	close(b.block)
	require.NoError(t, <-done)
	assert.Len(t, b.requests, 1)
}

func TestSession_ReadersDuringInFlightCall(t *testing.T) {
	b := &fakeBackend{
		block:   make(chan struct{}),
		entered: make(chan struct{}),
		replies: []*backend.ChatReply{
			{Reply: "offer ready", Context: backend.Context{"stage": "SALES", "session_id": "s1"}},
		},
	}
	s := newSession(b, func(o *Options) { o.CustomerID = "C004" })

	done := make(chan error, 1)
	go func() {
		_, err := s.Handle(context.Background(), "first")
		done <- err
	}()
	<-b.entered

	stop := make(chan struct{})
	read := make(chan struct{})
	go func() {
		defer close(read)
		for {
			select {
			case <-stop:
				return
			default:
				_ = s.Messages()
				_ = s.Activity()
				_ = s.Stage()
				_ = s.State()
				_ = s.Context()
			}
		}
	}()

	close(b.block)
	require.NoError(t, <-done)
	close(stop)
	<-read

	msgs := s.Messages()
	assert.Equal(t, "offer ready", msgs[len(msgs)-1].Text)
	assert.Equal(t, "SALES", s.Context().String("stage"))
}

func TestSession_ReadersDuringOnboarding(t *testing.T) {
	s := newSession(&fakeBackend{})

	stop := make(chan struct{})
	read := make(chan struct{})
	go func() {
		defer close(read)
		for {
			select {
			case <-stop:
				return
			default:
				_ = s.Stage()
				_ = s.Messages()
			}
		}
	}()

	mustHandle(t, s, "Priya Sharma", "9123456789")
	close(stop)
	<-read

	assert.Equal(t, onboarding.StageAskEmail, s.Stage())
}

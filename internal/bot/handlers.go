// Package bot is the Telegram front end: one conversation session per chat.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/gratefultolord/loan_intake_bot/internal/files"
	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
	"github.com/gratefultolord/loan_intake_bot/internal/session"
)

const (
	msgBusy        = "I'm still working on your previous request. Please wait a moment."
	msgFileFailed  = "Sorry, I couldn't read that file. Please try again."
	msgSessionDown = "Sorry, the assistant is unavailable right now. Please try again later."
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type fetcher interface {
	Fetch(ctx context.Context, fileID, name, mediaKind string) (*files.File, error)
}

// SessionFactory opens a new conversation for a chat.
type SessionFactory func(ctx context.Context) (*session.Session, error)

const (
	defaultIdleTimeout = 30 * time.Minute
	maxSweepInterval   = time.Minute
)

type chatSession struct {
	sess     *session.Session
	lastSeen time.Time
}

type BotService struct {
	botAPI      sender
	fileService fetcher
	newSession  SessionFactory
	logger      *zap.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[int64]*chatSession
}

type Option func(*BotService)

// WithIdleTimeout sets how long a chat may stay silent before its session is
// discarded. The next message then starts a fresh conversation.
func WithIdleTimeout(d time.Duration) Option {
	return func(b *BotService) { b.idleTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(b *BotService) { b.now = now }
}

func New(botAPI sender, fileService fetcher, newSession SessionFactory, logger *zap.Logger, opts ...Option) *BotService {
	b := &BotService{
		botAPI:      botAPI,
		fileService: fileService,
		newSession:  newSession,
		logger:      logger.Named("bot"),
		idleTimeout: defaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[int64]*chatSession),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Start consumes updates until ctx is cancelled or the channel closes. Each
// update is handled on its own goroutine so a chat waiting on the backend
// does not hold up other chats; a session rejects overlapping actions itself.
func (b *BotService) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	var wg sync.WaitGroup
	defer wg.Wait()

	if stop := b.startSweeper(); stop != nil {
		defer stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.Message == nil {
				continue
			}

			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				b.handleMessage(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *BotService) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if message.IsCommand() && message.Command() == commandStart {
		b.handleStart(ctx, chatID)
		return
	}

	sess, err := b.sessionFor(ctx, chatID)
	if err != nil {
		b.logger.Error("cannot open session", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendText(chatID, msgSessionDown, nil)
		return
	}

	var out []session.Message

	switch {
	case message.Document != nil || len(message.Photo) > 0:
		out, err = b.handleDocument(ctx, sess, message)
	case message.Command() == commandActivity || message.Text == buttonActivity:
		b.sendText(chatID, formatActivity(sess.Activity()), nil)
		return
	case message.Command() == commandEvents:
		added, err := sess.RefreshEvents(ctx)
		if errors.Is(err, session.ErrBusy) {
			b.sendText(chatID, msgBusy, nil)
			return
		}
		b.sendText(chatID, formatActivity(added), nil)
		return
	case sess.Stage() == onboarding.StageDone && (message.Command() == commandProceed || message.Text == buttonProceed):
		out, err = sess.Proceed(ctx)
	default:
		out, err = sess.Handle(ctx, message.Text)
	}

	if errors.Is(err, session.ErrBusy) {
		b.sendText(chatID, msgBusy, nil)
		return
	}

	if err != nil {
		b.logger.Warn("message handling failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendText(chatID, msgFileFailed, nil)
		return
	}

	b.deliver(chatID, sess, out)
}

func (b *BotService) handleStart(ctx context.Context, chatID int64) {
	sess, err := b.newSession(ctx)
	if err != nil {
		b.logger.Error("cannot open session", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendText(chatID, msgSessionDown, nil)
		return
	}

	b.mu.Lock()
	b.sessions[chatID] = &chatSession{sess: sess, lastSeen: b.now()}
	b.mu.Unlock()

	b.logger.Info("session started", zap.Int64("chat_id", chatID), zap.String("session_id", sess.ID()))
	b.deliver(chatID, sess, sess.Messages())
}

func (b *BotService) handleDocument(ctx context.Context, sess *session.Session, message *tgbotapi.Message) ([]session.Message, error) {
	var fileID, name, mediaKind string

	if message.Document != nil {
		fileID = message.Document.FileID
		name = message.Document.FileName
		mediaKind = message.Document.MimeType
	} else {
		fileID = message.Photo[len(message.Photo)-1].FileID
	}

	file, err := b.fileService.Fetch(ctx, fileID, name, mediaKind)
	if err != nil {
		return nil, err
	}

	return sess.Attach(ctx, session.Document{Name: file.Name, MediaKind: file.MediaKind, Data: file.Data})
}

func (b *BotService) sessionFor(ctx context.Context, chatID int64) (*session.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cs, ok := b.sessions[chatID]; ok {
		cs.lastSeen = b.now()
		return cs.sess, nil
	}

	sess, err := b.newSession(ctx)
	if err != nil {
		return nil, err
	}

	b.sessions[chatID] = &chatSession{sess: sess, lastSeen: b.now()}

	return sess, nil
}

// evictIdle drops sessions whose chat has been silent longer than the idle
// timeout and reports how many were removed.
func (b *BotService) evictIdle() int {
	if b.idleTimeout <= 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.idleTimeout)
	evicted := 0
	for chatID, cs := range b.sessions {
		if cs.lastSeen.Before(cutoff) {
			delete(b.sessions, chatID)
			evicted++
			b.logger.Debug("session expired", zap.Int64("chat_id", chatID), zap.String("session_id", cs.sess.ID()))
		}
	}

	return evicted
}

// startSweeper schedules evictIdle and returns the function that stops it.
// A non-positive idle timeout keeps sessions until /start replaces them.
func (b *BotService) startSweeper() func() {
	if b.idleTimeout <= 0 {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		b.logger.Error("cannot create session sweeper", zap.Error(err))
		return nil
	}

	interval := min(b.idleTimeout, maxSweepInterval)

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := b.evictIdle(); n > 0 {
				b.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}),
		gocron.WithName("session-sweeper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		b.logger.Error("cannot schedule session sweeper", zap.Error(err))
		_ = scheduler.Shutdown()
		return nil
	}

	scheduler.Start()

	return func() {
		if err := scheduler.Shutdown(); err != nil {
			b.logger.Warn("session sweeper shutdown failed", zap.Error(err))
		}
	}
}

// deliver sends the assistant side of out. The user's own messages are
// already visible in Telegram.
func (b *BotService) deliver(chatID int64, sess *session.Session, out []session.Message) {
	markup := keyboardFor(sess.Stage())

	for i, m := range out {
		if m.Sender != session.SenderAssistant {
			continue
		}

		var kb any
		if i == lastAssistant(out) {
			kb = markup
		}

		if m.HasDocument() {
			doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: m.DocumentName, Bytes: m.DocumentPayload})
			doc.Caption = m.Text
			doc.ReplyMarkup = kb
			b.send(doc)
			continue
		}

		b.sendText(chatID, m.Text, kb)
	}
}

func lastAssistant(out []session.Message) int {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Sender == session.SenderAssistant {
			return i
		}
	}

	return -1
}

func (b *BotService) sendText(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	b.send(msg)
}

func (b *BotService) send(c tgbotapi.Chattable) {
	if _, err := b.botAPI.Send(c); err != nil {
		b.logger.Warn("telegram send failed", zap.Error(err))
	}
}

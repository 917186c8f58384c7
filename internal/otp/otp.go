// Package otp defines the email one-time-password contract and an in-memory
// issuer used for local runs.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// SendResult is the reply to a send request. DemoCode is set only when the
// issuer is configured to expose codes.
type SendResult struct {
	Accepted bool
	DemoCode string
}

// Client sends and verifies email codes.
type Client interface {
	Send(ctx context.Context, email string) (SendResult, error)
	Verify(ctx context.Context, email, code string) (bool, error)
}

type record struct {
	code    string
	expires time.Time
}

// Service keeps one live code per email. Issuing a new code replaces the
// previous one, a successful check consumes it.
type Service struct {
	mu         sync.Mutex
	ttl        time.Duration
	exposeDemo bool
	now        func() time.Time
	codes      map[string]record
	generate   func() (string, error)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.generate = gen }
}

func NewService(ttl time.Duration, exposeDemo bool, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Service{
		ttl:        ttl,
		exposeDemo: exposeDemo,
		now:        time.Now,
		codes:      make(map[string]record),
		generate:   GenerateCode,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Send(_ context.Context, email string) (SendResult, error) {
	code, err := s.generate()
	if err != nil {
		return SendResult{}, fmt.Errorf("Service.Send: %w", err)
	}

	s.mu.Lock()
	s.codes[key(email)] = record{code: code, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()

	res := SendResult{Accepted: true}
	if s.exposeDemo {
		res.DemoCode = code
	}

	return res, nil
}

func (s *Service) Verify(_ context.Context, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(email)
	rec, ok := s.codes[k]
	if !ok {
		return false, nil
	}

	if rec.expires.Before(s.now()) {
		delete(s.codes, k)
		return false, nil
	}

	if rec.code != padCode(code) {
		return false, nil
	}

	delete(s.codes, k)

	return true, nil
}

// GenerateCode returns a uniformly random 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func padCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 6 {
		code = strings.Repeat("0", 6-len(code)) + code
	}

	return code
}

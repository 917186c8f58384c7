package otp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", fmt.Errorf("out of codes")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

func TestService_ResendInvalidatesPreviousCode(t *testing.T) {
	ctx := context.Background()
	s := NewService(time.Minute, true, WithGenerator(sequence("111111", "222222")))

	first, err := s.Send(ctx, "priya@x.com")
	require.NoError(t, err)
	assert.Equal(t, "111111", first.DemoCode)

	second, err := s.Send(ctx, "priya@x.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", second.DemoCode)

	ok, err := s.Verify(ctx, "priya@x.com", "111111")
	require.NoError(t, err)
	assert.False(t, ok, "stale code must fail")

	ok, err = s.Verify(ctx, "PRIYA@x.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Verify(ctx, "priya@x.com", "222222")
	require.NoError(t, err)
	assert.False(t, ok, "code is consumed on success")
}

func TestService_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewService(time.Minute, false,
		WithGenerator(sequence("000042")),
		WithClock(func() time.Time { return now }),
	)

	res, err := s.Send(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.DemoCode, "code hidden unless exposed")

	now = now.Add(2 * time.Minute)
	ok, err := s.Verify(context.Background(), "a@b.co", "000042")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_ZeroPadsShortCodes(t *testing.T) {
	s := NewService(time.Minute, false, WithGenerator(sequence("000042")))
	_, err := s.Send(context.Background(), "a@b.co")
	require.NoError(t, err)

	ok, err := s.Verify(context.Background(), "a@b.co", "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_UnknownEmail(t *testing.T) {
	ok, err := NewService(0, false).Verify(context.Background(), "x@y.z", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}

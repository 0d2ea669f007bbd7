package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryDelayFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{"429 with retry after", errors.New("Too Many Requests: retry after 7"), 7 * time.Second},
		{"429 bare", errors.New("too many requests"), 3 * time.Second},
		{"net timeout", fmt.Errorf("get updates: %w", timeoutErr{}), 2 * time.Second},
		{"other", errors.New("bad gateway"), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryDelayFromError(tt.err))
		})
	}
}

type scriptedSource struct {
	calls   int
	offsets []int
	cancel  context.CancelFunc
}

func (s *scriptedSource) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	s.calls++
	s.offsets = append(s.offsets, cfg.Offset)
	switch s.calls {
	case 1:
		return []tgbotapi.Update{{UpdateID: 10}, {UpdateID: 11}}, nil
	case 2:
		return []tgbotapi.Update{{UpdateID: 12}}, nil
	default:
		s.cancel()
		return nil, nil
	}
}

func TestRunPolling_AdvancesOffsetAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{cancel: cancel}

	var seen []int
	done := make(chan struct{})
	go func() {
		runPolling(ctx, src, zaptest.NewLogger(t), func(u tgbotapi.Update) { seen = append(seen, u.UpdateID) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runPolling did not stop")
	}
	assert.Equal(t, []int{10, 11, 12}, seen)
	assert.Equal(t, []int{0, 12, 13}, src.offsets)
}

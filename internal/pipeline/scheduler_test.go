package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubScanner struct {
	mu     sync.Mutex
	cards  []string
	errFor string
}

func (s *stubScanner) ScanCard(_ context.Context, cardName, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, cardName)
	if cardName == s.errFor {
		return errors.New("upstream down")
	}
	return nil
}

func (s *stubScanner) scanned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cards...)
}

func TestSchedulerSweepsImmediately(t *testing.T) {
	scanner := &stubScanner{}
	sched := NewScheduler(scanner, []string{"Charizard", "Blastoise"}, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(scanner.scanned()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, []string{"Charizard", "Blastoise"}, scanner.scanned())
}

func TestSchedulerOneFailureDoesNotStopSweep(t *testing.T) {
	scanner := &stubScanner{errFor: "Charizard"}
	sched := NewScheduler(scanner, []string{"Charizard", "Blastoise", "Venusaur"}, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(scanner.scanned()) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestSchedulerEmptyWatchlistIdlesUntilCancel(t *testing.T) {
	scanner := &stubScanner{}
	sched := NewScheduler(scanner, nil, time.Hour, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sched.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, scanner.scanned())
}

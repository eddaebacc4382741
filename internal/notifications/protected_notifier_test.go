package notifications_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smais007/eventora/internal/notifications"
)

type scriptedNotifier struct {
	err   error
	calls int
}

func (s *scriptedNotifier) SendJoinNotification(ctx context.Context, in notifications.JoinNotificationInput) error {
	s.calls++
	return s.err
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("provider down")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	in := notifications.JoinNotificationInput{EventID: "e1"}

	for i := 0; i < 3; i++ {
		if err := n.SendJoinNotification(context.Background(), in); err == nil {
			t.Fatalf("send %d: expected provider error", i+1)
		}
	}

	// circuit is open now: calls fail fast without reaching the provider
	err := n.SendJoinNotification(context.Background(), in)
	if !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
	if inner.calls != 3 {
		t.Fatalf("provider called %d times, want 3", inner.calls)
	}
}

func TestCircuitRecoversAfterCooldown(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("provider down")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         20 * time.Millisecond,
	})

	in := notifications.JoinNotificationInput{EventID: "e1"}

	if err := n.SendJoinNotification(context.Background(), in); err == nil {
		t.Fatal("expected provider error")
	}
	if err := n.SendJoinNotification(context.Background(), in); !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	time.Sleep(30 * time.Millisecond)
	inner.err = nil

	// half-open trial succeeds and closes the circuit
	if err := n.SendJoinNotification(context.Background(), in); err != nil {
		t.Fatalf("trial call after cooldown failed: %v", err)
	}
	if err := n.SendJoinNotification(context.Background(), in); err != nil {
		t.Fatalf("circuit should be closed again: %v", err)
	}
}

func TestFailedHalfOpenTrialReopens(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("provider down")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
	})

	in := notifications.JoinNotificationInput{EventID: "e1"}

	_ = n.SendJoinNotification(context.Background(), in) // opens

	time.Sleep(20 * time.Millisecond)

	if err := n.SendJoinNotification(context.Background(), in); err == nil {
		t.Fatal("half-open trial should have failed")
	}

	// back to open, immediately rejected
	if err := n.SendJoinNotification(context.Background(), in); !errors.Is(err, notifications.ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	inner := &scriptedNotifier{err: errors.New("blip")}

	n := notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	in := notifications.JoinNotificationInput{EventID: "e1"}

	_ = n.SendJoinNotification(context.Background(), in)
	_ = n.SendJoinNotification(context.Background(), in)

	inner.err = nil
	if err := n.SendJoinNotification(context.Background(), in); err != nil {
		t.Fatalf("successful send errored: %v", err)
	}

	inner.err = errors.New("blip")
	_ = n.SendJoinNotification(context.Background(), in)
	_ = n.SendJoinNotification(context.Background(), in)

	// only 2 consecutive failures since the success, circuit stays closed
	inner.err = nil
	if err := n.SendJoinNotification(context.Background(), in); err != nil {
		t.Fatalf("circuit opened too early: %v", err)
	}
}

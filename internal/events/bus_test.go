package events

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"timetracker-bot/internal/models"
)

func newTestBus() *Bus {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewBus(logger)
}

func TestPublishInSubscriptionOrder(t *testing.T) {
	bus := newTestBus()
	var calls []string

	Subscribe(bus, func(ctx context.Context, e AbsenceCreated, env Envelope) error {
		calls = append(calls, "first")
		return nil
	})
	Subscribe(bus, func(ctx context.Context, e AbsenceCreated, env Envelope) error {
		calls = append(calls, "second")
		if env.Name != NameAbsenceCreated {
			t.Errorf("envelope name = %s", env.Name)
		}
		return nil
	})

	bus.Publish(context.Background(), AbsenceCreated{Absence: models.AbsenceRequest{ID: 1}})

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v, want [first second]", calls)
	}
}

func TestFailingSubscriberIsIsolated(t *testing.T) {
	bus := newTestBus()
	delivered := 0

	Subscribe(bus, func(ctx context.Context, e AbsenceCreated, env Envelope) error {
		panic("boom")
	})
	Subscribe(bus, func(ctx context.Context, e AbsenceCreated, env Envelope) error {
		return errors.New("send failed")
	})
	Subscribe(bus, func(ctx context.Context, e AbsenceCreated, env Envelope) error {
		delivered++
		return nil
	})

	bus.Publish(context.Background(), AbsenceCreated{})

	if delivered != 1 {
		t.Fatalf("third subscriber called %d times, want 1", delivered)
	}
}

func TestSubscribersAreScopedByEvent(t *testing.T) {
	bus := newTestBus()
	var decisions []Decision

	Subscribe(bus, func(ctx context.Context, e AbsenceDecision, env Envelope) error {
		decisions = append(decisions, e.Decision)
		return nil
	})
	Subscribe(bus, func(ctx context.Context, e UserCreated, env Envelope) error {
		t.Error("user.created subscriber must not see absence events")
		return nil
	})

	bus.Publish(context.Background(), AbsenceDecision{Decision: DecisionRejected})

	if len(decisions) != 1 || decisions[0] != DecisionRejected {
		t.Fatalf("decisions = %v", decisions)
	}
	if bus.Subscribers(NameAbsenceDecision) != 1 || bus.Subscribers(NameLogEdited) != 0 {
		t.Error("unexpected subscriber counts")
	}
}

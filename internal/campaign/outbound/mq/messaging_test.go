package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shandysiswandi/mailbite/internal/campaign/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/shared/event"
)

type recordingPublisher struct {
	topic string
	msg   messaging.Message
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, msg messaging.Message) (messaging.Receipt, error) {
	p.topic, p.msg = topic, msg
	return messaging.Receipt{Topic: topic}, p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestPublishCampaignDispatched(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {

		// Arrange
		pub := &recordingPublisher{}
		m := NewMessaging(pub, "", instrument.NewNoop())
		ctx := instrument.SetCorrelationID(context.Background(), "cid-1")

		// Act
		err := m.PublishCampaignDispatched(ctx, usecase.CampaignDispatchedEvent{
			BatchID: 7, UserID: "u1", Total: 2, Sent: 1, Failed: 1, DispatchedAt: at,
		})

		// Assert
		if err != nil {
			t.Fatalf("PublishCampaignDispatched() error = %v", err)
		}
		if pub.topic != event.CampaignDispatchedDestination {
			t.Fatalf("topic = %q", pub.topic)
		}
		if pub.msg.Headers[keyOfCorrelationID] != "cid-1" || string(pub.msg.Key) != "7" {
			t.Fatalf("msg = %+v", pub.msg)
		}

		var got event.CampaignDispatchedMessage
		if err := json.Unmarshal(pub.msg.Body, &got); err != nil {
			t.Fatalf("body: %v", err)
		}
		want := event.CampaignDispatchedMessage{BatchID: 7, UserID: "u1", Total: 2, Sent: 1, Failed: 1, DispatchedAt: at}
		if got != want {
			t.Fatalf("body = %+v, want %+v", got, want)
		}
	})

	t.Run("CustomDestinationAndError", func(t *testing.T) {

		// Arrange
		pub := &recordingPublisher{err: io.ErrClosedPipe}
		m := NewMessaging(pub, "marketing.sent", instrument.NewNoop())

		// Act
		err := m.PublishCampaignDispatched(context.Background(), usecase.CampaignDispatchedEvent{BatchID: 1})

		// Assert
		if !errors.Is(err, io.ErrClosedPipe) || pub.topic != "marketing.sent" {
			t.Fatalf("err = %v, topic = %q", err, pub.topic)
		}
	})
}

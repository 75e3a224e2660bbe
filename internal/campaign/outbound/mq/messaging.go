package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/mailbite/internal/campaign/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client      messaging.Publisher
	destination string
	ins         instrument.Instrumentation
}

// NewMessaging publishes to destination, or to event.CampaignDispatchedDestination when empty.
func NewMessaging(client messaging.Publisher, destination string, ins instrument.Instrumentation) *Messaging {
	if destination == "" {
		destination = event.CampaignDispatchedDestination
	}
	return &Messaging{client: client, destination: destination, ins: ins}
}

func (m *Messaging) PublishCampaignDispatched(ctx context.Context, msg usecase.CampaignDispatchedEvent) error {
	ctx, span := m.ins.Tracer("campaign.outbound.mq").Start(ctx, "PublishCampaignDispatched")
	defer span.End()

	body, err := json.Marshal(event.CampaignDispatchedMessage{
		BatchID:      msg.BatchID,
		UserID:       msg.UserID,
		Total:        msg.Total,
		Sent:         msg.Sent,
		Failed:       msg.Failed,
		DispatchedAt: msg.DispatchedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, m.destination, messaging.Message{
		Key:  []byte(strconv.FormatInt(msg.BatchID, 10)),
		Body: body,
		Headers: map[string]string{
			keyOfCorrelationID: instrument.GetCorrelationID(ctx),
		},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

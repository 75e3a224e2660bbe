package email

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Dispatcher delivers a draft to each recipient over one mail session.
type Dispatcher struct {
	client     mail.Mail
	ins        instrument.Instrumentation
	deliveries metric.Int64Counter
}

func New(client mail.Mail, ins instrument.Instrumentation) *Dispatcher {
	counter, err := ins.Meter("campaign.outbound.email").Int64Counter("campaign.deliveries",
		metric.WithDescription("Campaign emails attempted, by outcome"))
	if err != nil {
		slog.Warn("failed to create deliveries counter", "error", err)
	}

	return &Dispatcher{client: client, ins: ins, deliveries: counter}
}

// Dispatch sends d to every recipient and returns one outcome each, in
// order. A failed recipient does not stop the batch. If the session cannot
// be opened every recipient fails with the same error.
func (m *Dispatcher) Dispatch(ctx context.Context, d entity.Draft, recipients []string) []entity.Outcome {
	ctx, span := m.ins.Tracer("campaign.outbound.email").Start(ctx, "Dispatch")
	defer span.End()
	span.SetAttributes(attribute.Int("recipient_count", len(recipients)))

	outcomes := make([]entity.Outcome, len(recipients))
	for i, r := range recipients {
		outcomes[i].Recipient = r
	}

	sess, err := m.client.Open(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open mail session", "recipient_count", len(recipients), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		for i := range outcomes {
			outcomes[i].Error = err.Error()
		}
		m.count(ctx, 0, len(outcomes))
		return outcomes
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close mail session", "error", err)
		}
	}()

	for i := range outcomes {
		err := sess.Send(ctx, mail.Message{
			To:      []string{outcomes[i].Recipient},
			Subject: d.Subject,
			Body:    d.Body,
		})
		if err != nil {
			outcomes[i].Error = err.Error()
			continue
		}
		outcomes[i].OK = true
	}

	sent, failed := entity.Tally(outcomes)
	span.SetAttributes(attribute.Int("sent", sent), attribute.Int("failed", failed))
	if failed > 0 {
		slog.WarnContext(ctx, "some campaign emails failed", "sent", sent, "failed", failed)
	}
	m.count(ctx, sent, failed)

	return outcomes
}

func (m *Dispatcher) count(ctx context.Context, sent, failed int) {
	if m.deliveries == nil {
		return
	}
	m.deliveries.Add(ctx, int64(sent), metric.WithAttributes(attribute.Bool("ok", true)))
	m.deliveries.Add(ctx, int64(failed), metric.WithAttributes(attribute.Bool("ok", false)))
}

package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

type SendOutput struct {
	BatchID    int64
	Draft      entity.Draft
	Recipients []string
	Outcomes   []entity.Outcome
	Sent       int
	Failed     int
}

// Send takes the recipient set out of the store, clears the session and
// only then dispatches, so the same set can never be sent twice. Delivery
// failures are reported per recipient in the output, not as an error.
func (s *Usecase) Send(ctx context.Context, sess *entity.Session) (*SendOutput, error) {
	ctx, span := s.startSpan(ctx, "Send")
	defer span.End()

	s.bindOwner(ctx, sess)
	if err := s.checkAction(ctx, sess, entity.ActionSend{}, "Nothing to send. Please start again."); err != nil {
		return nil, err
	}

	if sess.Subject == "" || sess.Body == "" {
		slog.WarnContext(ctx, "campaign has a token but no draft, discarded")
		if err := s.repoRecipient.Discard(ctx, sess.RecipientsToken); err != nil {
			slog.ErrorContext(ctx, "failed to repo discard recipients", "error", err)
		}
		sess.Clear()
		return nil, goerror.WrapBusiness(entity.ErrNoCampaign, "Nothing to send. Please start again.", goerror.CodeConflict)
	}

	recipients, err := s.repoRecipient.Take(ctx, sess.RecipientsToken)
	if err != nil {
		return nil, s.recipientsError(ctx, sess, err)
	}

	draft := sess.Draft
	owner := sess.UserID
	sess.Clear()

	// The set is already gone from the store; finish the batch even if the
	// caller disconnects.
	outcomes := s.repoMail.Dispatch(context.WithoutCancel(ctx), draft, recipients)
	sent, failed := entity.Tally(outcomes)

	batchID := s.uid.Generate()
	slog.InfoContext(ctx, "campaign dispatched", "batch_id", batchID, "sent", sent, "failed", failed)

	if err := s.repoMessaging.PublishCampaignDispatched(ctx, CampaignDispatchedEvent{
		BatchID:      batchID,
		UserID:       owner,
		Total:        len(outcomes),
		Sent:         sent,
		Failed:       failed,
		DispatchedAt: s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo publish campaign dispatched", "batch_id", batchID, "error", err)
	}

	return &SendOutput{
		BatchID:    batchID,
		Draft:      draft,
		Recipients: recipients,
		Outcomes:   outcomes,
		Sent:       sent,
		Failed:     failed,
	}, nil
}

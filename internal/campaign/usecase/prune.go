package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

type PruneInput struct {
	Addresses []string `validate:"min=1,dive,notblank"`
}

type PruneOutput struct {
	State      entity.State
	Recipients []string
}

// Prune removes addresses from the recipient set by exact match. Removing
// the last one ends the campaign.
func (s *Usecase) Prune(ctx context.Context, sess *entity.Session, in PruneInput) (*PruneOutput, error) {
	ctx, span := s.startSpan(ctx, "Prune")
	defer span.End()

	s.bindOwner(ctx, sess)
	if err := s.checkAction(ctx, sess, entity.ActionPrune{}, "No campaign in progress. Please start again."); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	remaining, err := s.repoRecipient.Remove(ctx, sess.RecipientsToken, in.Addresses)
	if err != nil {
		return nil, s.recipientsError(ctx, sess, err)
	}

	if len(remaining) == 0 {
		slog.InfoContext(ctx, "all recipients pruned, campaign ended")
		sess.Clear()
		return &PruneOutput{State: entity.StateEmpty}, nil
	}

	return &PruneOutput{State: entity.StateDrafting, Recipients: remaining}, nil
}

package usecase

import (
	"context"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
)

type PreviewOutput struct {
	State      entity.State
	Draft      entity.Draft
	Recipients []string
}

// Preview returns the campaign in progress, if any.
func (s *Usecase) Preview(ctx context.Context, sess *entity.Session) (*PreviewOutput, error) {
	ctx, span := s.startSpan(ctx, "Preview")
	defer span.End()

	s.bindOwner(ctx, sess)
	if err := s.checkAction(ctx, sess, entity.ActionPreview{}, ""); err != nil {
		return nil, err
	}

	if sess.State() == entity.StateEmpty {
		sess.Clear()
		return &PreviewOutput{State: entity.StateEmpty}, nil
	}

	recipients, err := s.repoRecipient.Load(ctx, sess.RecipientsToken)
	if err != nil {
		return nil, s.recipientsError(ctx, sess, err)
	}

	return &PreviewOutput{
		State:      entity.StateDrafting,
		Draft:      sess.Draft,
		Recipients: recipients,
	}, nil
}

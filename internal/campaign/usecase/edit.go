package usecase

import (
	"context"
	"strings"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

type EditInput struct {
	Subject string `validate:"notblank,max=200"`
	Body    string `validate:"notblank,max=2500"`
}

type EditOutput struct {
	Draft entity.Draft
}

// Edit overwrites the draft. A rejected edit keeps the stored draft.
func (s *Usecase) Edit(ctx context.Context, sess *entity.Session, in EditInput) (*EditOutput, error) {
	ctx, span := s.startSpan(ctx, "Edit")
	defer span.End()

	s.bindOwner(ctx, sess)
	if err := s.checkAction(ctx, sess, entity.ActionEdit{}, "No campaign in progress. Please start again."); err != nil {
		return nil, err
	}

	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(in.Body)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	draft := entity.Draft{Subject: in.Subject, Body: in.Body}
	if err := draft.CheckSize(); err != nil {
		return nil, goerror.NewInvalidMessage("The draft is too long to keep. Please shorten it.")
	}

	if _, err := s.repoRecipient.Load(ctx, sess.RecipientsToken); err != nil {
		return nil, s.recipientsError(ctx, sess, err)
	}

	sess.Draft = draft

	return &EditOutput{Draft: sess.Draft}, nil
}

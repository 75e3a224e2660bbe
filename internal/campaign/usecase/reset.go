package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

// Reset discards the campaign. The session is cleared even when the
// store could not be reached; the set then expires on its own.
func (s *Usecase) Reset(ctx context.Context, sess *entity.Session) error {
	ctx, span := s.startSpan(ctx, "Reset")
	defer span.End()

	s.bindOwner(ctx, sess)
	if err := s.checkAction(ctx, sess, entity.ActionReset{}, ""); err != nil {
		return err
	}

	token := sess.RecipientsToken
	sess.Clear()
	if token == "" {
		return nil
	}

	if err := s.repoRecipient.Discard(ctx, token); err != nil {
		slog.ErrorContext(ctx, "failed to repo discard recipients", "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

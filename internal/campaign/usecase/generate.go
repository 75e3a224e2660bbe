package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/addrcsv"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
)

type GenerateInput struct {
	Prompt  string `validate:"notblank,max=4000"`
	CSVFile []byte `validate:"required"`
}

type GenerateOutput struct {
	State      entity.State
	Draft      entity.Draft
	Recipients []string
}

// Generate starts a new campaign, replacing the current one only when
// every step succeeded, so nothing is stored for a draft the session cannot
// keep. Recipients are extracted before the generator is
// called so a useless file costs no generation.
func (s *Usecase) Generate(ctx context.Context, sess *entity.Session, in GenerateInput) (*GenerateOutput, error) {
	ctx, span := s.startSpan(ctx, "Generate")
	defer span.End()

	s.bindOwner(ctx, sess)

	in.Prompt = strings.TrimSpace(in.Prompt)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	recipients := addrcsv.Extract(in.CSVFile)
	if len(recipients) == 0 {
		return nil, goerror.NewInvalidMessage("No valid email addresses were found in the CSV.")
	}

	raw, err := s.repoGenerator.Generate(ctx, in.Prompt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo generate draft", "error", err)
		return nil, goerror.NewUpstream(fmt.Errorf("%w: %w", entity.ErrUpstreamGeneration, err),
			"Could not generate the email draft. Please try again.")
	}

	draft := entity.ParseDraft(raw, s.cfg.GetInt("generator.subject_max_length"))
	if draft.Body == "" {
		slog.WarnContext(ctx, "generator returned empty draft")
		return nil, goerror.NewUpstream(entity.ErrUpstreamGeneration,
			"The generator returned an empty draft. Please try again.")
	}
	if err := draft.CheckSize(); err != nil {
		slog.WarnContext(ctx, "generated draft too large", "subject_length", len(draft.Subject), "body_length", len(draft.Body))
		return nil, goerror.NewInvalidMessage("The generated draft is too long. Please try a shorter prompt.")
	}

	token := s.token.Generate()
	if err := s.repoRecipient.Create(ctx, token, recipients); err != nil {
		if errors.Is(err, entity.ErrStoreFull) {
			slog.WarnContext(ctx, "recipient store is full", "recipient_count", len(recipients))
			return nil, goerror.WrapBusiness(err, "Too many campaigns in progress. Please try again later.", goerror.CodeTooManyRequest)
		}
		slog.ErrorContext(ctx, "failed to repo create recipients", "recipient_count", len(recipients), "error", err)
		return nil, goerror.NewServer(err)
	}

	if prev := sess.RecipientsToken; prev != "" {
		if err := s.repoRecipient.Discard(ctx, prev); err != nil {
			slog.ErrorContext(ctx, "failed to repo discard replaced recipients", "error", err)
		}
	}

	sess.Draft = draft
	sess.RecipientsToken = token

	slog.InfoContext(ctx, "campaign generated", "recipient_count", len(recipients))

	return &GenerateOutput{
		State:      entity.StateDrafting,
		Draft:      draft,
		Recipients: recipients,
	}, nil
}

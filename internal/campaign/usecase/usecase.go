package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/mailbite/internal/campaign/entity"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goerror"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/jwt"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type CampaignDispatchedEvent struct {
	BatchID      int64
	UserID       string
	Total        int
	Sent         int
	Failed       int
	DispatchedAt time.Time
}

type repoRecipient interface {
	Create(ctx context.Context, token string, addrs []string) error
	Load(ctx context.Context, token string) ([]string, error)
	Remove(ctx context.Context, token string, addrs []string) ([]string, error)
	Take(ctx context.Context, token string) ([]string, error)
	Discard(ctx context.Context, token string) error
}

type repoGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type repoMail interface {
	Dispatch(ctx context.Context, d entity.Draft, recipients []string) []entity.Outcome
}

type repoMessaging interface {
	PublishCampaignDispatched(ctx context.Context, msg CampaignDispatchedEvent) error
}

// Usecase drives the campaign lifecycle. Every method takes the caller's
// session and updates it in place; callers persist it whether or not an
// error is returned.
type Usecase struct {
	repoRecipient repoRecipient
	repoGenerator repoGenerator
	repoMail      repoMail
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	token         uid.StringID
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
}

type Dependency struct {
	RepoRecipient repoRecipient
	RepoGenerator repoGenerator
	RepoMail      repoMail
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	Token         uid.StringID
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoRecipient: dep.RepoRecipient,
		repoGenerator: dep.RepoGenerator,
		repoMail:      dep.RepoMail,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		token:         dep.Token,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("campaign.usecase").Start(ctx, name)
}

// bindOwner resets a session that belongs to somebody else, so a draft
// never follows a different user on a shared browser.
func (s *Usecase) bindOwner(ctx context.Context, sess *entity.Session) {
	owner := jwt.UserID(ctx)
	if sess.UserID == owner {
		return
	}

	if sess.RecipientsToken != "" {
		if err := s.repoRecipient.Discard(ctx, sess.RecipientsToken); err != nil {
			slog.ErrorContext(ctx, "failed to repo discard recipients of previous owner", "error", err)
		}
		slog.InfoContext(ctx, "session owner changed, campaign reset")
	}

	*sess = entity.Session{UserID: owner}
}

// checkAction runs the lifecycle transition for a. A refused action
// clears leftover draft fields.
func (s *Usecase) checkAction(ctx context.Context, sess *entity.Session, a entity.Action, msg string) error {
	if _, err := entity.Transition(sess.State(), a); err != nil {
		slog.WarnContext(ctx, "campaign action refused", "state", sess.State().String(), "error", err)
		sess.Clear()
		return goerror.WrapBusiness(err, msg, goerror.CodeConflict)
	}
	return nil
}

// recipientsError maps a recipient store failure. A missing set means the
// session is stale: it is cleared and StaleSession is returned.
func (s *Usecase) recipientsError(ctx context.Context, sess *entity.Session, err error) error {
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "campaign recipients not found, session cleared")
		sess.Clear()
		return goerror.WrapBusiness(entity.ErrStaleSession,
			"No recipients found for this session. Please try again.", goerror.CodeGone)
	}

	slog.ErrorContext(ctx, "failed to repo access recipients", "error", err)
	return goerror.NewServer(err)
}

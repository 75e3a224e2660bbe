package campaign

import (
	"context"
	"time"

	"github.com/shandysiswandi/mailbite/internal/campaign/inbound"
	"github.com/shandysiswandi/mailbite/internal/campaign/outbound/email"
	"github.com/shandysiswandi/mailbite/internal/campaign/outbound/mq"
	"github.com/shandysiswandi/mailbite/internal/campaign/outbound/recipient"
	"github.com/shandysiswandi/mailbite/internal/campaign/usecase"
	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/kvstore"
	"github.com/shandysiswandi/mailbite/internal/pkg/mail"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/router"
	"github.com/shandysiswandi/mailbite/internal/pkg/session"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
	"github.com/shandysiswandi/mailbite/internal/pkg/validator"
)

const (
	defaultMaxUploadBytes = 5 << 20
	defaultRecipientsTTL  = 30 * time.Minute
)

type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Dependency struct {
	Mapping    kvstore.Mapping            `validate:"required"`
	Generator  generator                  `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Session    *session.Cookie            `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ttl := dep.Config.GetMinute("recipients.ttl_minutes")
	if ttl <= 0 {
		ttl = defaultRecipientsTTL
	}

	store := recipient.New(dep.Mapping, ttl, dep.Instrument)
	dispatcher := email.New(dep.Mail, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Config.GetString("modules.campaign.event_destination"), dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoRecipient: store,
		RepoGenerator: dep.Generator,
		RepoMail:      dispatcher,
		RepoMessaging: repoMsg,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Token:         uid.NewHexToken(dep.Config.GetInt("modules.campaign.token_length")),
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
	})

	maxUpload := dep.Config.GetInt64("modules.campaign.max_upload_bytes")
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Session, maxUpload)

	return nil
}

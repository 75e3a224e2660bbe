package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/mailbite/internal/campaign"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.campaign.enabled") {
		if err := campaign.New(campaign.Dependency{
			Mapping:    a.recipients,
			Generator:  a.generator,
			Mail:       a.mail,
			Messaging:  a.messaging,
			Session:    a.session,
			Router:     a.router,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module campaign", "error", err)
			os.Exit(1)
		}
	}
}

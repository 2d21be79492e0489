package bootstrap

import (
	appconfig "github.com/Nanyonga-Rahmah/crm-landing-pages/internal/config"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/notify"
	"github.com/Nanyonga-Rahmah/crm-landing-pages/pkg/logging"
)

// BuildEmailSender returns SendGrid when an API key is configured and a
// logging stub otherwise. The second value names the choice.
func BuildEmailSender(cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg != nil {
		sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sg != nil {
			return sg, "sendgrid"
		}
	}
	return notify.NewStubEmailSender(logger), "stub"
}

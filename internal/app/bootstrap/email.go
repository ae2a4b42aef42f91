package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/stepform/stepform/internal/config"
	"github.com/stepform/stepform/internal/notify"
	"github.com/stepform/stepform/pkg/logging"
)

// BuildEmailSender selects the outbound email provider. EMAIL_PROVIDER forces
// a choice; "auto" prefers SendGrid when an API key is present, then SES, and
// falls back to the logging stub so local development never needs credentials.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}

	provider := cfg.EmailProvider
	if provider == "" || provider == "auto" {
		switch {
		case cfg.SendGridAPIKey != "":
			provider = "sendgrid"
		case cfg.SESFromEmail != "":
			provider = "ses"
		default:
			provider = "stub"
		}
	}

	switch provider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			logger.Info("email provider configured", "provider", "sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub")
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			logger.Info("email provider configured", "provider", "ses")
			return sender
		}
		logger.Warn("ses selected but not configured, falling back to stub")
	}

	logger.Info("email provider configured", "provider", "stub")
	return notify.NewStubEmailSender(logger)
}

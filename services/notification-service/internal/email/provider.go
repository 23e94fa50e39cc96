package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

// Config selects and configures the email provider.
type Config struct {
	Provider       string // smtp, sendgrid, ses or log
	From           From
	SMTPHost       string
	SMTPPort       string
	SendGridAPIKey string
	AWSRegion      string
}

// New builds the sender named by cfg.Provider. An empty provider means smtp.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.From), nil
	case "sendgrid":
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.From)
	case "ses":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.From), nil
	case "log":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

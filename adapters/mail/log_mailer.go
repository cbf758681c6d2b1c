package mail

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
)

// LogMailer records the handoff of a verification token to the outbound
// email system. Actual formatting and delivery live outside this service;
// deployments wire a real dispatcher behind the same port.
type LogMailer struct {
	log *logrus.Logger
}

// NewLogMailer creates a mailer that only logs the handoff
func NewLogMailer(log *logrus.Logger) ports.Mailer {
	return &LogMailer{log: log}
}

// SendVerification logs that a token is ready for delivery. The token
// itself is never logged.
func (m *LogMailer) SendVerification(ctx context.Context, identity core.Identity, purpose core.Purpose, token string) error {
	m.log.WithFields(logrus.Fields{
		"identity": identity,
		"purpose":  purpose,
	}).Info("verification token handed off for delivery")
	return nil
}

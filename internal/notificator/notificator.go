package notificator

import (
	"runtime/debug"

	"github.com/curavia/custodia/pkg/logger"
)

// Notificator fans reconciliation and reserve alerts out to the configured
// ops channels. Either channel may be nil when not configured.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
	EmailNotificator    *EmailNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator, emailNotif *EmailNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif, EmailNotificator: emailNotif}
}

// safeCall runs a function with panic recovery so one failing channel cannot
// take the reconciliation sweep down with it.
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Alert delivers one operational alert to every configured channel.
func (n *Notificator) Alert(subject, message string) {
	if n.TelegramNotificator != nil {
		n.safeCall(func() { n.TelegramNotificator.SendAlert(subject + "\n" + message) }, "telegramAlert")
	}
	if n.EmailNotificator != nil {
		n.safeCall(func() { n.EmailNotificator.SendAlert(subject, message) }, "emailAlert")
	}
}

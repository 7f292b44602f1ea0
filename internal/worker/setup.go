package worker

import (
	"travelbooking/internal/config"
	"travelbooking/internal/domain"
	"travelbooking/internal/models"
)

// OptionsFromConfig maps the worker config section onto Options.
func OptionsFromConfig(cfg config.WorkerConfig, alerts domain.Notifier) Options {
	return Options{
		Retry:        RetryPolicyFromConfig(cfg),
		QueueKey:     cfg.QueueKey,
		PollInterval: cfg.PollInterval,
		Alerts:       alerts,
	}
}

// RegisterBookingHandlers installs the handlers every booking deployment needs.
// The sheets mirror is registered separately because it is optional.
func (w *TaskWorker) RegisterBookingHandlers(ledger domain.InventoryLedger, gateway domain.PaymentGateway) {
	w.Handle(models.TaskTypeRefund, RefundHandler(gateway, w.logger))
	w.Handle(models.TaskTypeRelease, ReleaseHandler(ledger))
}

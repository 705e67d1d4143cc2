package ports

import (
	"context"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
)

// AlertNotifier is an abstract interface for delivering alerts to the operator
// notification channel. The delivery mechanism (chat, webhook, pager) is an
// implementation concern of the adapter.
type AlertNotifier interface {
	// NotifyAlert delivers a structured alert payload.
	NotifyAlert(ctx context.Context, alert *model.Alert)
}

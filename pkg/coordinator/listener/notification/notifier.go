package notification

import (
	"context"
	"fmt"

	model "github.com/pressflow/pacer/pkg/coordinator/core/domain/model"
	"github.com/pressflow/pacer/pkg/coordinator/core/ports"
	"github.com/pressflow/pacer/pkg/coordinator/support/util/logger"
)

// LogNotifier is a notifier implementation that writes alerts to the
// application log. It stands in until a chat or webhook channel is wired up.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() ports.AlertNotifier {
	logger.Infof("Notification: Initializing log-based alert notifier.")
	return &LogNotifier{}
}

// NotifyAlert logs a structured alert payload at a level matching its severity.
func (n *LogNotifier) NotifyAlert(ctx context.Context, alert *model.Alert) {
	message := fmt.Sprintf(
		"Alert: [%s] %s (type: %s, category: %s, value: %.2f, threshold: %.2f)",
		alert.Severity, alert.Message, alert.Type, alert.Category, alert.MetricValue, alert.Threshold,
	)

	switch alert.Severity {
	case model.SeverityCritical:
		logger.Errorf(message)
	case model.SeverityWarning:
		logger.Warnf(message)
	default:
		logger.Infof(message)
	}
}

var _ ports.AlertNotifier = (*LogNotifier)(nil)

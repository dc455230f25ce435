package queue

import (
	"github.com/hibiken/asynq"

	"homeowner-assistant-platform/internal/logger"
)

// AnalyticsClient enqueues usage events for the worker to store. Fire and
// forget: enqueue failures are logged and never surface to the request path.
type AnalyticsClient struct {
	client *asynq.Client
}

func NewAnalyticsClient(client *asynq.Client) *AnalyticsClient {
	return &AnalyticsClient{client: client}
}

func (a *AnalyticsClient) LogEvent(event string, props map[string]interface{}) {
	if a == nil || a.client == nil {
		return
	}
	task, err := NewAnalyticsEventTask(event, props)
	if err != nil {
		logger.Warn("failed to build analytics task", "event", event, "error", err)
		return
	}
	if _, err := a.client.Enqueue(task); err != nil {
		logger.Warn("failed to enqueue analytics event", "event", event, "error", err)
	}
}

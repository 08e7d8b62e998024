package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskRefreshClientHealth recomputes cached health scores for one
// organization.
const TaskRefreshClientHealth = "insights.client_health.refresh"

// TaskRefreshAllClientHealth fans out one TaskRefreshClientHealth per
// organization. The periodic scheduler enqueues it.
const TaskRefreshAllClientHealth = "insights.client_health.refresh_all"

type RefreshClientHealthPayload struct {
	OrganizationID string `json:"organizationId"`
}

func NewRefreshClientHealthTask(payload RefreshClientHealthPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshClientHealth, data), nil
}

func ParseRefreshClientHealthPayload(task *asynq.Task) (RefreshClientHealthPayload, error) {
	var payload RefreshClientHealthPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RefreshClientHealthPayload{}, err
	}
	return payload, nil
}

func NewRefreshAllClientHealthTask() *asynq.Task {
	return asynq.NewTask(TaskRefreshAllClientHealth, nil)
}

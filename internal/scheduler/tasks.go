package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadDelivery = "leads.delivery"

const TaskCapacityNotice = "buyers.capacity_notice"

type LeadDeliveryPayload struct {
	LeadID  string `json:"leadId"`
	BuyerID string `json:"buyerId"`
	Rank    int    `json:"rank"`
}

type CapacityNoticePayload struct {
	BuyerID string `json:"buyerId"`
}

func NewLeadDeliveryTask(payload LeadDeliveryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadDelivery, data), nil
}

func ParseLeadDeliveryPayload(task *asynq.Task) (LeadDeliveryPayload, error) {
	var payload LeadDeliveryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadDeliveryPayload{}, err
	}
	return payload, nil
}

func NewCapacityNoticeTask(payload CapacityNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCapacityNotice, data), nil
}

func ParseCapacityNoticePayload(task *asynq.Task) (CapacityNoticePayload, error) {
	var payload CapacityNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CapacityNoticePayload{}, err
	}
	return payload, nil
}

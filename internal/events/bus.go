package events

import (
	platformevents "lead_broker_backend/platform/events"
	"lead_broker_backend/platform/logger"
)

// InMemoryBus is the process-local bus shared by the api and scheduler binaries.
type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

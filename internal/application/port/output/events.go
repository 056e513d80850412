package output

import "content-crew/internal/domain/entity"

type EventPublisher interface {
	Publish(event entity.Event)
}

type EventBus interface {
	EventPublisher
	Subscribe(handler entity.EventHandler, types ...entity.EventType) (unsubscribe func())
	Close()
}

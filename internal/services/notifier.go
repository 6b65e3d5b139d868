package services

import "github.com/yungbote/csvshare-backend/internal/realtime"

// Notifier accepts state-change events for fan-out. Publish must not block.
type Notifier interface {
	Publish(ev realtime.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(realtime.Event) {}

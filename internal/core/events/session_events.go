package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSessionStarted = "session.started"
	EventTypeSessionEnded   = "session.ended"
)

type SessionStartedEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func NewSessionStartedEvent(userID, username string) *SessionStartedEvent {
	return &SessionStartedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionStarted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id":  userID,
				"username": username,
			},
		},
		UserID:   userID,
		Username: username,
	}
}

type SessionEndedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

const (
	SessionEndReasonLogout  = "logout"
	SessionEndReasonCorrupt = "corrupt"
)

func NewSessionEndedEvent(reason string) *SessionEndedEvent {
	return &SessionEndedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionEnded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reason": reason,
			},
		},
		Reason: reason,
	}
}

package model

import "time"

// Channel is the messaging transport of an inbound notification.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// SessionState records how an inbound message was resolved.
type SessionState string

const (
	SessionDone    SessionState = "done"
	SessionWaiting SessionState = "waiting"
	SessionError   SessionState = "error"
)

// MobileSession links a phone number to the property it submitted.
type MobileSession struct {
	ID          string       `json:"id"`
	PhoneNumber string       `json:"phone_number"`
	PropertyID  *string      `json:"property_id,omitempty"`
	Channel     Channel      `json:"channel"`
	State       SessionState `json:"state"`
	CreatedAt   time.Time    `json:"created_at"`
}

package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub. It doubles
// as the topic name.
type EventType string

const (
	EventWaitlistNotice EventType = "waitlist-notice"
)

// PushEnvelope is the JSON body Pub/Sub push subscriptions deliver. Data is
// base64 encoded.
type PushEnvelope struct {
	Subscription string `json:"subscription"`
	Message      struct {
		ID   string `json:"messageId"`
		Data string `json:"data"`
	} `json:"message"`
}

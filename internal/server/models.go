package server

import "github.com/mohammad-safakhou/curator/internal/curation"

// HTTPError is the JSON error body written by the error handler.
type HTTPError struct {
	Error string `json:"error"`
}

type StartSessionRequest struct {
	Category string `json:"category"`
}

// StartSessionResponse carries the presented session, or Status "empty" when
// no new candidates could be found.
type StartSessionResponse struct {
	Status  string             `json:"status"`
	Session *curation.Snapshot `json:"session,omitempty"`
}

type CurrentSessionResponse struct {
	State   curation.State     `json:"state"`
	Session *curation.Snapshot `json:"session,omitempty"`
}

type ReplyRequest struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

type GestureRequest struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// DeliveryResponse reports whether an awaiting session took the event.
type DeliveryResponse struct {
	Consumed bool `json:"consumed"`
}

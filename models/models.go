package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBatch is returned when the fetch budget is exhausted without a single new candidate
var ErrEmptyBatch = errors.New("no new candidates available")

// ErrGesturesUnsupported is returned by acknowledgment transports that cannot deliver gestures
var ErrGesturesUnsupported = errors.New("gestures not supported by transport")

// Candidate is one fetched content item. It is never mutated after the fetch.
type Candidate struct {
	Title      string `json:"title"`
	SourceLink string `json:"source_link"`
	MediaURL   string `json:"media_url"`
}

// Identity is the key used for daily deduplication.
func (c Candidate) Identity() string {
	return strings.TrimSpace(c.MediaURL)
}

// Batch is an ordered, 1-based numbered set of candidates presented together.
type Batch struct {
	items []Candidate
}

// NewBatch copies items so later changes to the caller's slice don't leak in.
func NewBatch(items []Candidate) Batch {
	cp := make([]Candidate, len(items))
	copy(cp, items)
	return Batch{items: cp}
}

func (b Batch) Len() int { return len(b.items) }

// Item returns the candidate numbered index (1-based).
func (b Batch) Item(index int) (Candidate, bool) {
	if index < 1 || index > len(b.items) {
		return Candidate{}, false
	}
	return b.items[index-1], true
}

// Items returns a copy of the batch contents in presentation order.
func (b Batch) Items() []Candidate {
	cp := make([]Candidate, len(b.items))
	copy(cp, b.items)
	return cp
}

// Requester identifies where prompts go and who may answer them.
type Requester struct {
	OperatorID string `json:"operator_id"`
	ChannelID  string `json:"channel_id"`
}

func (r Requester) String() string {
	return fmt.Sprintf("%s@%s", r.OperatorID, r.ChannelID)
}

// MessageRef is the transport's handle for a sent message.
type MessageRef string

// Embed is a rich presentation unit (title, link, image).
type Embed struct {
	Title       string `json:"title,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Message is an outbound message to a requester or the destination channel.
type Message struct {
	Text  string `json:"text,omitempty"`
	Embed *Embed `json:"embed,omitempty"`
}

// Reply is an inbound typed message from a channel.
type Reply struct {
	SenderID  string `json:"sender_id"`
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// Gesture is a lightweight acknowledgment (e.g. a reaction) on a sent message.
type Gesture struct {
	SenderID   string     `json:"sender_id"`
	MessageRef MessageRef `json:"message_ref"`
	Emoji      string     `json:"emoji"`
}

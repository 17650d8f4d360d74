package curation

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/curator/models"
)

// Notifier sends messages to the requester's context.
type Notifier interface {
	Send(ctx context.Context, to models.Requester, msg models.Message) (models.MessageRef, error)
}

// Publisher writes to the destination channel.
type Publisher interface {
	Publish(ctx context.Context, msg models.Message) (models.MessageRef, error)
}

const stoppedNotice = "Stopped, nothing was published."

func batchHeader(b models.Batch, category string, gestures bool) models.Message {
	var sb strings.Builder
	if category != "" {
		fmt.Fprintf(&sb, "Here are %d candidates from %s to choose from!", b.Len(), category)
	} else {
		fmt.Fprintf(&sb, "Here are %d candidates to choose from!", b.Len())
	}
	sb.WriteString(" Reply with `approve <number>` to publish one, `reject` to get a new batch, or `stop` to cancel.")
	if gestures {
		sb.WriteString(" You can also react to an item to approve it.")
	}
	return models.Message{Text: sb.String()}
}

func itemMessage(index int, c models.Candidate) models.Message {
	return models.Message{Embed: &models.Embed{
		Title:    fmt.Sprintf("%d. %s", index, c.Title),
		URL:      c.SourceLink,
		ImageURL: c.MediaURL,
	}}
}

func publishMessage(c models.Candidate, footer string) models.Message {
	return models.Message{Embed: &models.Embed{
		Title:       c.Title,
		URL:         c.SourceLink,
		Description: footer,
		ImageURL:    c.MediaURL,
	}}
}

func textMessage(format string, args ...any) models.Message {
	return models.Message{Text: fmt.Sprintf(format, args...)}
}

func selectionNotice(err *SelectionError) models.Message {
	if err.OutOfRange() {
		return textMessage("Invalid number, please reply with a number between 1 and %d.", err.Size)
	}
	return textMessage("Please reply with `approve <number>`, `reject` or `stop`.")
}

package transport

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/curator/models"
)

// LogSink is the outbound transport used when no webhook is configured:
// messages are written to the log and given random refs.
type LogSink struct {
	Logger *log.Logger
}

func NewLogSink(prefix string) *LogSink {
	return &LogSink{Logger: log.New(log.Writer(), prefix, log.LstdFlags)}
}

func (l *LogSink) Send(_ context.Context, to models.Requester, msg models.Message) (models.MessageRef, error) {
	ref := models.MessageRef(uuid.NewString())
	l.Logger.Printf("-> %s [%s] %s", to, ref, render(msg))
	return ref, nil
}

func (l *LogSink) Publish(_ context.Context, msg models.Message) (models.MessageRef, error) {
	ref := models.MessageRef(uuid.NewString())
	l.Logger.Printf("publish [%s] %s", ref, render(msg))
	return ref, nil
}

func render(msg models.Message) string {
	if msg.Embed == nil {
		return msg.Text
	}
	out := msg.Embed.Title + " " + msg.Embed.ImageURL
	if msg.Text != "" {
		out = msg.Text + " | " + out
	}
	return out
}

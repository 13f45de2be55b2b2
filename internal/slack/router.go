package slack

import (
	"context"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// channelMarker is the fixed first character of public channel identifiers,
// distinguishing channel messages from direct messages and groups.
const channelMarker = 'C'

// handleMessage classifies an inbound event and, when it qualifies, kicks
// off a reply pipeline. Pipelines run concurrently; each carries only its
// own originating-event context, so no serialization is needed. Events that
// do not qualify are dropped silently.
func (s *Session) handleMessage(ctx context.Context, msg *slackapi.Msg) {
	if !s.qualifies(msg) {
		s.logger.Debug("Ignoring event", "channel", msg.Channel, "user", msg.User)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.replyWithSchedule(ctx, msg.Channel, msg.Text)
	}()
}

// qualifies reports whether an event is a real channel message, authored by
// someone other than the bot, that explicitly mentions the bot. The message
// text is used as the query as-is, mention markup included. With no resolved
// identity the self and mention checks are indeterminate, so nothing
// qualifies.
func (s *Session) qualifies(msg *slackapi.Msg) bool {
	identity := s.botIdentity()
	if identity.ID == "" {
		return false
	}
	if msg.Type != "message" || msg.Text == "" {
		return false
	}
	if len(msg.Channel) == 0 || msg.Channel[0] != channelMarker {
		return false
	}
	if msg.User == identity.ID {
		return false
	}
	return strings.Contains(msg.Text, identity.ID)
}

// replyWithSchedule runs the document fetch and extraction for one event
// and posts the result back to the originating channel. Fetch failures
// produce no reply at all.
func (s *Session) replyWithSchedule(ctx context.Context, channelID, query string) {
	reply, err := s.extractor.Reply(ctx, query)
	if err != nil {
		s.logger.Debug("Reply pipeline produced no reply", "channel_id", channelID, "error", err)
		return
	}
	s.postToChannel(ctx, channelID, reply)
}

// Package slack owns the long-lived Slack connection. It resolves the bot's
// own identity from the workspace roster, runs the first-run check, and
// dispatches inbound events to the reply pipeline.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/wtfconf/workflowybot/internal/config"
	"github.com/wtfconf/workflowybot/internal/database"
	"github.com/wtfconf/workflowybot/internal/schedule"
)

const welcomeMessage = "Greetings! I am a bot whose sole purpose in life is " +
	"to keep this channel updated with any changes to the WTFConf Workflowy."

// API captures the Slack Web API surface the session uses. *slackapi.Client
// satisfies it.
type API interface {
	GetUsersContext(ctx context.Context, options ...slackapi.GetUsersOption) ([]slackapi.User, error)
	GetConversationsContext(ctx context.Context, params *slackapi.GetConversationsParameters) ([]slackapi.Channel, string, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Identity is the bot's own user entry, resolved once at startup by matching
// the configured bot name against the workspace user roster.
type Identity struct {
	ID   string
	Name string
}

// Session composes the Slack client with the bot's dependencies. The user
// and channel rosters are loaded on connect and treated as read-only
// snapshots; a reconnect replaces the whole snapshot under the lock, since
// reply pipelines and the announcement job read it from their own
// goroutines.
type Session struct {
	api       API
	rtm       *slackapi.RTM
	cfg       *config.Config
	store     database.Store
	extractor schedule.Extractor
	logger    *slog.Logger

	// mu guards the roster snapshot below.
	mu       sync.RWMutex
	identity Identity
	users    []slackapi.User
	channels []slackapi.Channel

	// wg tracks in-flight reply pipelines so shutdown can wait for them.
	wg sync.WaitGroup
}

// NewSession creates a session around an existing Slack client and RTM
// connection.
func NewSession(
	cfg *config.Config,
	api API,
	rtm *slackapi.RTM,
	store database.Store,
	extractor schedule.Extractor,
	logger *slog.Logger,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		api:       api,
		rtm:       rtm,
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		logger:    logger.With("component", "slack"),
	}
}

// Run starts the RTM connection and dispatches events until ctx is
// cancelled or the session hits a fatal condition (invalid credentials,
// unresolvable identity).
func (s *Session) Run(ctx context.Context) error {
	go s.rtm.ManageConnection()
	defer func() {
		if err := s.rtm.Disconnect(); err != nil {
			s.logger.Debug("Error disconnecting RTM", "error", err)
		}
		s.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutdown signal received, closing Slack session")
			return nil
		case msg, ok := <-s.rtm.IncomingEvents:
			if !ok {
				return errors.New("slack event stream closed")
			}
			switch ev := msg.Data.(type) {
			case *slackapi.ConnectedEvent:
				if err := s.handleConnected(ctx); err != nil {
					return err
				}
			case *slackapi.MessageEvent:
				s.handleMessage(ctx, &ev.Msg)
			case *slackapi.RTMError:
				s.logger.Error("RTM error", "code", ev.Code, "msg", ev.Msg)
			case *slackapi.InvalidAuthEvent:
				return errors.New("slack credentials rejected")
			}
		}
	}
}

// handleConnected fetches fresh roster snapshots, resolves the bot identity,
// publishes them atomically, and runs the first-run check. Identity
// resolution failure is fatal; every downstream self/mention check depends
// on it.
func (s *Session) handleConnected(ctx context.Context) error {
	users, channels, err := s.fetchRoster(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	identity, err := resolveIdentity(users, s.cfg.Slack.BotName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.users = users
	s.channels = channels
	s.identity = identity
	s.mu.Unlock()

	s.logger.Info("Connected to Slack",
		"bot_id", identity.ID,
		"bot_name", identity.Name,
		"users", len(users),
		"channels", len(channels))

	s.firstRunCheck(ctx)
	return nil
}

func (s *Session) fetchRoster(ctx context.Context) ([]slackapi.User, []slackapi.Channel, error) {
	users, err := s.api.GetUsersContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}

	var channels []slackapi.Channel
	params := &slackapi.GetConversationsParameters{
		Types: []string{"public_channel"},
		Limit: 200,
	}
	for {
		page, cursor, err := s.api.GetConversationsContext(ctx, params)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list channels: %w", err)
		}
		channels = append(channels, page...)
		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}
	return users, channels, nil
}

// resolveIdentity scans the user roster for an exact, case-sensitive match
// against the configured bot name.
func resolveIdentity(users []slackapi.User, botName string) (Identity, error) {
	for _, user := range users {
		if user.Name == botName {
			return Identity{ID: user.ID, Name: user.Name}, nil
		}
	}
	return Identity{}, fmt.Errorf("bot user %q not found in workspace roster", botName)
}

// botIdentity returns the current identity snapshot. The zero Identity
// means the session has not connected yet.
func (s *Session) botIdentity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// firstChannel returns the first channel of the roster snapshot, the
// destination for the welcome message and announcements.
func (s *Session) firstChannel() (slackapi.Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.channels) == 0 {
		return slackapi.Channel{}, false
	}
	return s.channels[0], true
}

// firstRunCheck sends the one-time welcome message if the bot has never run
// before, then records the current run time. Store errors abandon the check
// without taking the process down.
func (s *Session) firstRunCheck(ctx context.Context) {
	_, ran, err := s.store.GetLastRun(ctx)
	if err != nil {
		s.logger.Error("First-run check failed", "error", err)
		return
	}

	if !ran {
		if first, ok := s.firstChannel(); ok {
			s.postToChannel(ctx, first.ID, welcomeMessage)
		} else {
			s.logger.Warn("No channels in roster, skipping welcome message")
		}
	}

	if err := s.store.RecordRun(ctx, time.Now().UTC()); err != nil {
		s.logger.Error("Failed to record run time", "error", err)
	}
}

// AnnounceSchedule posts the rendered schedule for the given query to the
// first roster channel. Used by the optional daily announcement job. An
// empty query defaults to the current weekday name.
func (s *Session) AnnounceSchedule(ctx context.Context, query string) error {
	if s.botIdentity().ID == "" {
		return errors.New("session not connected yet")
	}
	first, ok := s.firstChannel()
	if !ok {
		return errors.New("no channels in roster")
	}
	if query == "" {
		query = time.Now().Weekday().String()
	}

	reply, err := s.extractor.Reply(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to build announcement: %w", err)
	}

	s.postToChannel(ctx, first.ID, reply)
	return nil
}

// channelName resolves a human-readable destination from the roster
// snapshot. Messages are posted by channel name, not id.
func (s *Session) channelName(channelID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.channels {
		if ch.ID == channelID {
			return ch.Name, true
		}
	}
	return "", false
}

func (s *Session) postToChannel(ctx context.Context, channelID, text string) {
	name, ok := s.channelName(channelID)
	if !ok {
		s.logger.Warn("Channel not in roster, dropping message", "channel_id", channelID)
		return
	}

	_, _, err := s.api.PostMessageContext(ctx, "#"+name,
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionAsUser(true),
	)
	if err != nil {
		s.logger.Error("Failed to post message", "channel", name, "error", err)
		return
	}
	s.logger.Debug("Posted message", "channel", name)
}

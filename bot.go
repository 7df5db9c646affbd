package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gatherbot/telegram"
)

// Messenger is the chat transport. telegram.Client implements it; tests use
// a fake.
type Messenger interface {
	Poll(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	Send(ctx context.Context, chatID int64, text string) error
	SendWithButtons(ctx context.Context, chatID int64, text string, rows [][]telegram.Button) error
	EditMessage(ctx context.Context, chatID, messageID int64, text string, rows [][]telegram.Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// EventStore is the persistence surface the orchestrator needs for events.
type EventStore interface {
	CreateEvent(ctx context.Context, creatorID int64, creatorName string, p *EventProposal) (string, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	GetEventsForUser(ctx context.Context, userID int64) ([]Event, error)
	UpdateParticipants(ctx context.Context, eventID string, userID int64, name string, join bool) (MembershipOutcome, int64, error)
}

// PreferenceStore is the persistence surface for user preferences.
type PreferenceStore interface {
	SavePreferences(ctx context.Context, userID int64, prefs Preferences) error
	GetPreferences(ctx context.Context, userID int64) (*Preferences, error)
}

// Bot routes inbound updates to handlers. It is stateless between updates
// apart from the per-user session store; every collaborator failure becomes
// a user-visible reply, never a crash.
type Bot struct {
	messenger   Messenger
	completer   Completer
	synth       *Synthesizer
	events      EventStore
	prefs       PreferenceStore
	sessions    Sessions
	log         *slog.Logger
	pollTimeout int
}

func NewBot(messenger Messenger, completer Completer, synth *Synthesizer,
	events EventStore, prefs PreferenceStore, sessions Sessions,
	log *slog.Logger, pollTimeout int) *Bot {
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Bot{
		messenger:   messenger,
		completer:   completer,
		synth:       synth,
		events:      events,
		prefs:       prefs,
		sessions:    sessions,
		log:         log,
		pollTimeout: pollTimeout,
	}
}

// Run is the main blocking loop. Exits only when ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.messenger.Poll(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.log.Error("poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			b.handleUpdate(ctx, u)
			offset = u.UpdateID + 1
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, u telegram.Update) {
	log := b.log.With(
		"correlation_id", uuid.NewString(),
		"update_id", u.UpdateID,
		"user_id", u.UserID,
		"chat_id", u.ChatID,
	)
	log.Info("update received", "callback", u.IsCallback(), "text", u.Text)

	switch {
	case u.IsCallback():
		b.handleCallback(ctx, log, u)
	case strings.HasPrefix(u.Text, "/"):
		b.handleCommand(ctx, log, u)
	default:
		b.handleChat(ctx, log, u)
	}
}

// send delivers text, logging (not propagating) transport failures.
func (b *Bot) send(ctx context.Context, log *slog.Logger, chatID int64, text string) {
	if err := b.messenger.Send(ctx, chatID, text); err != nil {
		log.Error("send failed", "error", err)
	}
}

// edit rewrites the message a callback came from.
func (b *Bot) edit(ctx context.Context, log *slog.Logger, u telegram.Update, text string, rows [][]telegram.Button) {
	if err := b.messenger.EditMessage(ctx, u.ChatID, u.MessageID, text, rows); err != nil {
		log.Error("edit failed", "error", err)
	}
}

// ack answers a callback query; text, when non-empty, shows as a toast.
func (b *Bot) ack(ctx context.Context, log *slog.Logger, u telegram.Update, text string) {
	if err := b.messenger.AnswerCallback(ctx, u.CallbackID, text); err != nil {
		log.Error("answer callback failed", "error", err)
	}
}

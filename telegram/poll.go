package telegram

import (
	"context"
	"strings"
)

// Update is a normalized inbound interaction: either a text/command message
// or an inline-button press (callback query).
type Update struct {
	UpdateID    int64
	ChatID      int64
	UserID      int64
	MessageID   int64  // message the update refers to; for callbacks, the message carrying the keyboard
	DisplayName string // sender's first name, plus last name when set
	Text        string // message text, or callback data for button presses
	CallbackID  string // non-empty for button presses; must be acknowledged
}

// IsCallback reports whether the update is an inline-button press.
func (u Update) IsCallback() bool { return u.CallbackID != "" }

// Wire structures for the subset of the Bot API we consume.
type wireUpdate struct {
	UpdateID      int64              `json:"update_id"`
	Message       *wireMessage       `json:"message,omitempty"`
	CallbackQuery *wireCallbackQuery `json:"callback_query,omitempty"`
}

type wireMessage struct {
	MessageID int64     `json:"message_id"`
	From      *wireUser `json:"from,omitempty"`
	Chat      wireChat  `json:"chat"`
	Text      string    `json:"text,omitempty"`
	Date      int64     `json:"date"`
}

type wireUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type wireChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type wireCallbackQuery struct {
	ID      string       `json:"id"`
	From    wireUser     `json:"from"`
	Message *wireMessage `json:"message,omitempty"`
	Data    string       `json:"data,omitempty"`
}

func displayName(u wireUser) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Poll long-polls getUpdates and converts text messages and callback queries
// to Updates. Updates without a sender or without text/data are dropped.
func (c *Client) Poll(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}

	var raw []wireUpdate
	if err := c.call(ctx, "getUpdates", payload, &raw); err != nil {
		return nil, err
	}

	updates := make([]Update, 0, len(raw))
	for _, w := range raw {
		switch {
		case w.Message != nil:
			if w.Message.From == nil || w.Message.Text == "" {
				continue
			}
			updates = append(updates, Update{
				UpdateID:    w.UpdateID,
				ChatID:      w.Message.Chat.ID,
				UserID:      w.Message.From.ID,
				MessageID:   w.Message.MessageID,
				DisplayName: displayName(*w.Message.From),
				Text:        w.Message.Text,
			})
		case w.CallbackQuery != nil:
			if w.CallbackQuery.Data == "" || w.CallbackQuery.Message == nil {
				continue
			}
			updates = append(updates, Update{
				UpdateID:    w.UpdateID,
				ChatID:      w.CallbackQuery.Message.Chat.ID,
				UserID:      w.CallbackQuery.From.ID,
				MessageID:   w.CallbackQuery.Message.MessageID,
				DisplayName: displayName(w.CallbackQuery.From),
				Text:        w.CallbackQuery.Data,
				CallbackID:  w.CallbackQuery.ID,
			})
		}
	}
	return updates, nil
}

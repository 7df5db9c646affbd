package telegram

import "context"

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4096

// Button is an inline keyboard button.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Send delivers plain text to a chat, splitting it into ≤4096-rune chunks at
// newline boundaries so long listings are never rejected.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitAtNewlines(text, maxMessageRunes) {
		err := c.call(ctx, "sendMessage", map[string]any{
			"chat_id": chatID,
			"text":    chunk,
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

// SendWithButtons sends text with an inline keyboard. rows is the keyboard
// layout, one slice per keyboard row.
func (c *Client) SendWithButtons(ctx context.Context, chatID int64, text string, rows [][]Button) error {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]any{
			"inline_keyboard": rows,
		},
	}, nil)
}

// EditMessage rewrites a previously sent message in place. rows may be nil to
// drop the keyboard.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID int64, text string, rows [][]Button) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if rows != nil {
		payload["reply_markup"] = map[string]any{"inline_keyboard": rows}
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallback acknowledges a button press, clearing the client-side
// spinner. text, when non-empty, is shown to the user as a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	}, nil)
}

// splitAtNewlines splits text into chunks of at most maxRunes runes, breaking
// at newline boundaries. A window without a newline is hard-split.
func splitAtNewlines(text string, maxRunes int) []string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxRunes
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		splitAt := -1
		for i := end - 1; i >= start; i-- {
			if runes[i] == '\n' {
				splitAt = i
				break
			}
		}
		if splitAt < 0 {
			chunks = append(chunks, string(runes[start:end]))
			start = end
			continue
		}
		chunks = append(chunks, string(runes[start:splitAt+1]))
		start = splitAt + 1
	}
	return chunks
}

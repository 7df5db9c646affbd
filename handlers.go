package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"gatherbot/telegram"
)

const helpText = `Available commands:
/help - Show this help message
/event - Create or view events
/join <EventID> <Your Name> - Join an event
/list - List your events
/preferences - Set your event preferences

You can also just chat with me about anything!`

const eventsPerPage = 5

var eventMenu = [][]telegram.Button{
	{{Text: "Create New Event", CallbackData: "create_event"}},
	{{Text: "View My Events", CallbackData: "list_events"}},
}

var preferencesMenu = [][]telegram.Button{
	{{Text: "Set Interests", CallbackData: "set_interests"}},
	{{Text: "Set Timezone", CallbackData: "set_timezone"}},
	{{Text: "Set Preferred Times", CallbackData: "set_preferred_times"}},
}

var interestsKeyboard = [][]telegram.Button{
	{{Text: "Sports", CallbackData: "interest_Sports"}, {Text: "Music", CallbackData: "interest_Music"}},
	{{Text: "Technology", CallbackData: "interest_Technology"}, {Text: "Art", CallbackData: "interest_Art"}},
	{{Text: "Save", CallbackData: "save_interests"}},
}

var timezoneKeyboard = [][]telegram.Button{
	{{Text: "UTC+8 (Hong Kong)", CallbackData: "tz_+8"}, {Text: "UTC+0 (London)", CallbackData: "tz_+0"}},
	{{Text: "UTC-5 (New York)", CallbackData: "tz_-5"}, {Text: "UTC+9 (Tokyo)", CallbackData: "tz_+9"}},
}

var timesKeyboard = [][]telegram.Button{
	{{Text: "Morning (9:00-12:00)", CallbackData: "time_Morning"}, {Text: "Afternoon (13:00-17:00)", CallbackData: "time_Afternoon"}},
	{{Text: "Evening (18:00-22:00)", CallbackData: "time_Evening"}, {Text: "Night (23:00-8:00)", CallbackData: "time_Night"}},
	{{Text: "Save", CallbackData: "save_times"}},
}

var confirmKeyboard = [][]telegram.Button{
	{{Text: "Confirm Event", CallbackData: "confirm_event"}},
	{{Text: "Generate Another", CallbackData: "regenerate_event"}},
}

// handleChat forwards free text to the completion service and relays the
// reply verbatim.
func (b *Bot) handleChat(ctx context.Context, log *slog.Logger, u telegram.Update) {
	reply, err := b.completer.Complete(ctx, u.Text)
	if err != nil {
		log.Error("chat completion failed", "error", err)
		b.send(ctx, log, u.ChatID, "Failed to process message: "+err.Error())
		return
	}
	b.send(ctx, log, u.ChatID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, log *slog.Logger, u telegram.Update) {
	fields := strings.Fields(u.Text)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/help", "/start":
		b.send(ctx, log, u.ChatID, helpText)
	case "/event":
		if err := b.messenger.SendWithButtons(ctx, u.ChatID, "Please select an action:", eventMenu); err != nil {
			log.Error("send failed", "error", err)
		}
	case "/join":
		b.joinEvent(ctx, log, u, fields[1:])
	case "/list":
		b.listEvents(ctx, log, u)
	case "/preferences":
		if err := b.messenger.SendWithButtons(ctx, u.ChatID, "Please select a preference to set:", preferencesMenu); err != nil {
			log.Error("send failed", "error", err)
		}
	default:
		log.Warn("unknown command", "command", cmd)
	}
}

// normalizeEventID pads a short numeric id to the canonical 4-digit form.
// Returns "" when the input is not 1-4 digits.
func normalizeEventID(raw string) string {
	if len(raw) == 0 || len(raw) > 4 {
		return ""
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return strings.Repeat("0", 4-len(raw)) + raw
}

func (b *Bot) joinEvent(ctx context.Context, log *slog.Logger, u telegram.Update, args []string) {
	if len(args) < 2 {
		b.send(ctx, log, u.ChatID, "Usage: /join <EventID> <Your Name>\nExample: /join 0001 John")
		return
	}
	id := normalizeEventID(args[0])
	if id == "" {
		b.send(ctx, log, u.ChatID, "Invalid event ID format. Please enter a number between 1-9999")
		return
	}
	name := strings.Join(args[1:], " ")

	ev, err := b.events.GetEvent(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		b.send(ctx, log, u.ChatID, fmt.Sprintf("Event %s does not exist", id))
		return
	}
	if err != nil {
		log.Error("join lookup failed", "event_id", id, "error", err)
		b.send(ctx, log, u.ChatID, "Error joining event: "+err.Error())
		return
	}
	if slices.Contains(ev.ParticipantNames, name) {
		b.send(ctx, log, u.ChatID, fmt.Sprintf("%s is already a participant in this event", name))
		return
	}

	outcome, modified, err := b.events.UpdateParticipants(ctx, id, u.UserID, name, true)
	if err != nil {
		log.Error("join update failed", "event_id", id, "error", err)
		b.send(ctx, log, u.ChatID, "Error joining event: "+err.Error())
		return
	}
	switch outcome {
	case MembershipNotFound:
		b.send(ctx, log, u.ChatID, fmt.Sprintf("Event %s does not exist", id))
	case MembershipAlreadyMember:
		b.send(ctx, log, u.ChatID, fmt.Sprintf("%s is already a participant in this event", name))
	case MembershipUpdated:
		if modified == 0 {
			b.send(ctx, log, u.ChatID, fmt.Sprintf("%s failed to join the event. Please try again later", name))
			return
		}
		updated, err := b.events.GetEvent(ctx, id)
		if err != nil {
			log.Error("join refetch failed", "event_id", id, "error", err)
			updated = ev
		}
		b.send(ctx, log, u.ChatID, fmt.Sprintf(
			"%s successfully joined event %s!\n\n- Event: %s\n- Current Participants: %d\n- Participant List: %s",
			name, id, updated.Title, len(updated.Participants), strings.Join(updated.ParticipantNames, ", ")))
	}
}

func (b *Bot) listEvents(ctx context.Context, log *slog.Logger, u telegram.Update) {
	events, err := b.events.GetEventsForUser(ctx, u.UserID)
	if err != nil {
		log.Error("list events failed", "error", err)
		events = nil
	}
	if len(events) == 0 {
		b.send(ctx, log, u.ChatID, "No events found.\nUse /event to create a new event!")
		return
	}

	for start := 0; start < len(events); start += eventsPerPage {
		end := min(start+eventsPerPage, len(events))
		var sb strings.Builder
		sb.WriteString("Your Events\n")
		for _, ev := range events[start:end] {
			sb.WriteString("\n")
			sb.WriteString(formatEventSummary(&ev))
		}
		b.send(ctx, log, u.ChatID, sb.String())
	}
	b.send(ctx, log, u.ChatID, "Join an Event\nUse command: /join <EventID> <Your Name>\nExample: /join 0001 John")
}

func formatEventSummary(ev *Event) string {
	return fmt.Sprintf(
		"- Event %s\n- %s\n-------------------------\n- Type: %s\n- Time: %s\n- Duration: %s minutes\n- Status: %s\n-------------------------\n",
		ev.ID, ev.Title, ev.Type, ev.Datetime, ev.Duration, ev.Status)
}

func (b *Bot) handleCallback(ctx context.Context, log *slog.Logger, u telegram.Update) {
	data := u.Text
	switch {
	case data == "create_event" || data == "regenerate_event":
		b.ack(ctx, log, u, "")
		b.createEventFlow(ctx, log, u)
	case data == "confirm_event":
		b.ack(ctx, log, u, "")
		b.confirmEvent(ctx, log, u)
	case data == "list_events":
		b.ack(ctx, log, u, "")
		b.listEventsDetailed(ctx, log, u)
	case data == "set_interests":
		b.ack(ctx, log, u, "")
		b.edit(ctx, log, u, "Please select your interests (multiple choices allowed):", interestsKeyboard)
	case data == "set_timezone":
		b.ack(ctx, log, u, "")
		b.edit(ctx, log, u, "Please select your timezone:", timezoneKeyboard)
	case data == "set_preferred_times":
		b.ack(ctx, log, u, "")
		b.edit(ctx, log, u, "Please select your preferred meeting times:", timesKeyboard)
	case strings.HasPrefix(data, "interest_"):
		interest := strings.TrimPrefix(data, "interest_")
		b.sessions.AddInterest(u.UserID, interest)
		b.ack(ctx, log, u, "Added "+interest+" to your interests")
	case strings.HasPrefix(data, "tz_"):
		b.ack(ctx, log, u, "")
		b.setTimezone(ctx, log, u, "UTC"+strings.TrimPrefix(data, "tz_"))
	case strings.HasPrefix(data, "time_"):
		t := strings.TrimPrefix(data, "time_")
		b.sessions.AddPreferredTime(u.UserID, t)
		b.ack(ctx, log, u, "Added "+t+" to your preferred times")
	case data == "save_interests":
		b.ack(ctx, log, u, "")
		b.saveInterests(ctx, log, u)
	case data == "save_times":
		b.ack(ctx, log, u, "")
		b.savePreferredTimes(ctx, log, u)
	default:
		b.ack(ctx, log, u, "")
		log.Warn("unknown callback", "data", data)
	}
}

// createEventFlow asks the synthesizer for a proposal tailored to the user's
// saved preferences and shows it with confirm/regenerate buttons. Preference
// lookup failures degrade to no preferences rather than blocking the flow.
func (b *Bot) createEventFlow(ctx context.Context, log *slog.Logger, u telegram.Update) {
	prefs, err := b.prefs.GetPreferences(ctx, u.UserID)
	if err != nil {
		log.Error("preferences lookup failed", "error", err)
		prefs = nil
	}

	proposal, err := b.synth.Synthesize(ctx, prefs)
	if err != nil {
		log.Error("synthesis failed", "error", err)
		var synthErr *SynthesisError
		if errors.As(err, &synthErr) && synthErr.Cause != CauseServiceError {
			b.edit(ctx, log, u, "Error parsing event suggestion: "+synthErr.Detail+". Please try again.", nil)
			return
		}
		b.edit(ctx, log, u, "Error occurred: "+err.Error(), nil)
		return
	}

	b.sessions.SetDraft(u.UserID, proposal)
	b.edit(ctx, log, u, formatProposal(proposal, u.DisplayName), confirmKeyboard)
}

func formatProposal(p *EventProposal, creatorName string) string {
	var sb strings.Builder
	sb.WriteString("Suggested Event Details:\n")
	fmt.Fprintf(&sb, "- Event: %s\n", p.Title)
	fmt.Fprintf(&sb, "- Type: %s\n", p.Type)
	fmt.Fprintf(&sb, "- Time: %s\n", p.Datetime)
	fmt.Fprintf(&sb, "- Duration: %s minutes\n", p.Duration)
	fmt.Fprintf(&sb, "- Creator: %s\n", creatorName)
	sb.WriteString("- Current Participants: 1\n")
	fmt.Fprintf(&sb, "- Participant List: %s\n", creatorName)
	fmt.Fprintf(&sb, "\nDescription: %s\n", p.Description)
	sb.WriteString("\nDetailed Agenda:\n")
	for _, item := range p.Agenda {
		fmt.Fprintf(&sb, "- %s: %s\n", item.Time, item.Item)
	}
	sb.WriteString("\nWould you like to create this event?")
	return sb.String()
}

// confirmEvent persists the pending draft. The draft is intentionally left in
// the session afterwards; confirming twice creates two events.
func (b *Bot) confirmEvent(ctx context.Context, log *slog.Logger, u telegram.Update) {
	draft, ok := b.sessions.Draft(u.UserID)
	if !ok {
		b.edit(ctx, log, u, "Creation failed: No event data found", nil)
		return
	}

	id, err := b.events.CreateEvent(ctx, u.UserID, u.DisplayName, draft)
	if err != nil {
		log.Error("create event failed", "error", err)
		b.edit(ctx, log, u, "Error creating event: "+err.Error(), nil)
		return
	}

	names := u.DisplayName
	b.edit(ctx, log, u, fmt.Sprintf(
		"Event created successfully!\n\n- Event ID: %s\n- Creator: %s\n- Current Participants: 1\n- Participant List: %s",
		id, u.DisplayName, names), nil)
}

// listEventsDetailed is the "View My Events" callback: one message with full
// detail per event, sent as a fresh message so the menu stays usable.
func (b *Bot) listEventsDetailed(ctx context.Context, log *slog.Logger, u telegram.Update) {
	events, err := b.events.GetEventsForUser(ctx, u.UserID)
	if err != nil {
		log.Error("list events failed", "error", err)
		events = nil
	}
	if len(events) == 0 {
		b.send(ctx, log, u.ChatID, "No events found.\nUse /event to create a new event!")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your Events\n")
	for _, ev := range events {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "- Event %s\n", ev.ID)
		fmt.Fprintf(&sb, "- %s\n", ev.Title)
		sb.WriteString("-------------------------\n")
		fmt.Fprintf(&sb, "- Type: %s\n", ev.Type)
		fmt.Fprintf(&sb, "- Time: %s\n", ev.Datetime)
		fmt.Fprintf(&sb, "- Duration: %s minutes\n", ev.Duration)
		fmt.Fprintf(&sb, "- Status: %s\n", ev.Status)
		fmt.Fprintf(&sb, "- Current Participants: %d\n", len(ev.Participants))
		fmt.Fprintf(&sb, "- Participant List: %s\n", strings.Join(ev.ParticipantNames, ", "))
		fmt.Fprintf(&sb, "- Description: %s\n", ev.Description)
		sb.WriteString("-------------------------\n")
	}
	sb.WriteString("\nJoin an Event\nUse command: /join <EventID> <Your Name>\nExample: /join 0001 John")
	b.send(ctx, log, u.ChatID, sb.String())
}

// setTimezone persists immediately; the preference record is a full replace,
// so pending unsaved interest/time picks are not included.
func (b *Bot) setTimezone(ctx context.Context, log *slog.Logger, u telegram.Update, tz string) {
	if err := b.prefs.SavePreferences(ctx, u.UserID, Preferences{Timezone: tz}); err != nil {
		log.Error("save timezone failed", "error", err)
		b.edit(ctx, log, u, "Error saving timezone: "+err.Error(), nil)
		return
	}
	b.edit(ctx, log, u, "Timezone set to "+tz, nil)
}

func (b *Bot) saveInterests(ctx context.Context, log *slog.Logger, u telegram.Update) {
	interests := b.sessions.Interests(u.UserID)
	if err := b.prefs.SavePreferences(ctx, u.UserID, Preferences{Interests: interests}); err != nil {
		log.Error("save interests failed", "error", err)
		b.edit(ctx, log, u, "Error saving interests: "+err.Error(), nil)
		return
	}
	b.edit(ctx, log, u, "Saved interests: "+strings.Join(interests, ", "), nil)
}

func (b *Bot) savePreferredTimes(ctx context.Context, log *slog.Logger, u telegram.Update) {
	times := b.sessions.PreferredTimes(u.UserID)
	if err := b.prefs.SavePreferences(ctx, u.UserID, Preferences{PreferredTimes: times}); err != nil {
		log.Error("save preferred times failed", "error", err)
		b.edit(ctx, log, u, "Error saving preferred times: "+err.Error(), nil)
		return
	}
	b.edit(ctx, log, u, "Saved preferred times: "+strings.Join(times, ", "), nil)
}

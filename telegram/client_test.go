package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	clone.Host = t.target.Host
	return t.base.RoundTrip(clone)
}

func newTestClient(ts *httptest.Server) *Client {
	u, _ := url.Parse(ts.URL)
	c := New("test-token")
	c.httpClient = &http.Client{Transport: rewriteTransport{target: u, base: ts.Client().Transport}}
	return c
}

func TestPollTextMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["offset"].(float64) != 7 {
			t.Fatalf("expected offset=7, got %v", body["offset"])
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":1001,"message":{"message_id":22,"from":{"id":123,"first_name":"Ada","last_name":"Lovelace"},"chat":{"id":456,"type":"private"},"text":"/list","date":1700}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 7, 30)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	want := []Update{{
		UpdateID:    1001,
		ChatID:      456,
		UserID:      123,
		MessageID:   22,
		DisplayName: "Ada Lovelace",
		Text:        "/list",
	}}
	if !reflect.DeepEqual(updates, want) {
		t.Fatalf("updates mismatch\n got: %#v\nwant: %#v", updates, want)
	}
}

func TestPollCallbackQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":2002,"callback_query":{"id":"cbq-9","from":{"id":777,"first_name":"Bob"},"message":{"message_id":9,"chat":{"id":888,"type":"private"},"date":1700},"data":"confirm_event"}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	want := []Update{{
		UpdateID:    2002,
		ChatID:      888,
		UserID:      777,
		MessageID:   9,
		DisplayName: "Bob",
		Text:        "confirm_event",
		CallbackID:  "cbq-9",
	}}
	if !reflect.DeepEqual(updates, want) {
		t.Fatalf("updates mismatch\n got: %#v\nwant: %#v", updates, want)
	}
	if !updates[0].IsCallback() {
		t.Fatal("expected IsCallback() to be true")
	}
}

func TestPollDropsEmptyUpdates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":1,"message":{"message_id":1,"from":{"id":1,"first_name":"A"},"chat":{"id":10,"type":"private"},"date":1700}},{"update_id":2,"callback_query":{"id":"z","from":{"id":2,"first_name":"B"},"message":{"message_id":2,"chat":{"id":11,"type":"private"},"date":1700}}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	updates, err := c.Poll(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %#v", updates)
	}
}

func TestSendWithButtons(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		rm := body["reply_markup"].(map[string]any)
		ik := rm["inline_keyboard"].([]any)
		if len(ik) != 2 {
			t.Fatalf("expected two rows, got %d", len(ik))
		}
		btn := ik[0].([]any)[0].(map[string]any)
		if btn["text"] != "Create New Event" || btn["callback_data"] != "create_event" {
			t.Fatalf("unexpected first button: %#v", btn)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":2}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	rows := [][]Button{
		{{Text: "Create New Event", CallbackData: "create_event"}},
		{{Text: "View My Events", CallbackData: "list_events"}},
	}
	if err := c.SendWithButtons(context.Background(), 42, "Please select an action:", rows); err != nil {
		t.Fatalf("send with buttons: %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/editMessageText") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["message_id"].(float64) != 9 {
			t.Fatalf("message_id mismatch: %v", body["message_id"])
		}
		if _, hasMarkup := body["reply_markup"]; hasMarkup {
			t.Fatal("expected no reply_markup for nil rows")
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":9}}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if err := c.EditMessage(context.Background(), 42, 9, "done", nil); err != nil {
		t.Fatalf("edit message: %v", err)
	}
}

func TestSendChunksLongText(t *testing.T) {
	var texts []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		texts = append(texts, body["text"].(string))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer ts.Close()

	long := strings.Repeat(strings.Repeat("x", 100)+"\n", 50) // 5050 runes
	c := newTestClient(ts)
	if err := c.Send(context.Background(), 1, long); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(texts))
	}
	if got := strings.Join(texts, ""); got != long {
		t.Fatalf("chunks do not reassemble the original text (got %d runes, want %d)", len(got), len(long))
	}
	for i, chunk := range texts {
		if n := len([]rune(chunk)); n > maxMessageRunes {
			t.Fatalf("chunk %d exceeds limit: %d runes", i, n)
		}
	}
}

func TestAnswerCallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/answerCallbackQuery") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		defer r.Body.Close()
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["callback_query_id"] != "cbq-1" {
			t.Fatalf("callback id mismatch: %v", body["callback_query_id"])
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if err := c.AnswerCallback(context.Background(), "cbq-1", "Added Music to your interests"); err != nil {
		t.Fatalf("answer callback: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	err := c.Send(context.Background(), 1, "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

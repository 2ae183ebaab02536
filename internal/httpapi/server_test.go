package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/telexorg/summarizebot/internal/bot"
	"github.com/telexorg/summarizebot/internal/config"
)

// fakeBot returns canned replies and records invocations.
type fakeBot struct {
	reply bot.Reply
	err   error
	calls []string
	users []string
}

func (f *fakeBot) HandleMessage(_ context.Context, userID, text string) (bot.Reply, error) {
	f.calls = append(f.calls, text)
	f.users = append(f.users, userID)
	if f.err != nil {
		return bot.Reply{}, f.err
	}
	return f.reply, nil
}

func newTestServer(t *testing.T, fb *fakeBot) *httptest.Server {
	t.Helper()
	cfg := config.Config{TriggerPhrase: "@bot"}
	srv := New(cfg, fb, nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res, decoded
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeBot{})

	res, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
	if body["agent"] != "SummarizeBot" {
		t.Fatalf("agent field = %v, want SummarizeBot", body["agent"])
	}
	if body["version"] == "" {
		t.Fatalf("version field missing")
	}
}

func TestAgentCard(t *testing.T) {
	ts := newTestServer(t, &fakeBot{})

	res, err := http.Get(ts.URL + "/a2a/agent/summarizeBot")
	if err != nil {
		t.Fatalf("GET agent card error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["agent"] != "SummarizeBot" || body["status"] != "ready" {
		t.Fatalf("agent card = %v", body)
	}
	usage, _ := body["usage"].(map[string]any)
	if usage == nil || !strings.Contains(usage["trigger"].(string), "@bot") {
		t.Fatalf("usage = %v, want trigger hint", usage)
	}
}

func TestA2ARespondsToMessage(t *testing.T) {
	fb := &fakeBot{reply: bot.Reply{Text: "here is your summary", Triggered: true}}
	ts := newTestServer(t, fb)

	res, body := postJSON(t, ts.URL+"/a2a/agent/summarizeBot",
		`{"message":"@bot summarize","userId":"test-user","channelId":"test-channel"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if body["response"] != "here is your summary" {
		t.Fatalf("response = %v", body["response"])
	}
	if len(fb.calls) != 1 || fb.calls[0] != "@bot summarize" {
		t.Fatalf("bot calls = %v", fb.calls)
	}
	if fb.users[0] != "test-user" {
		t.Fatalf("bot user = %q, want test-user", fb.users[0])
	}
}

func TestA2ALogsChannelIdentity(t *testing.T) {
	fb := &fakeBot{reply: bot.Reply{Text: "ok", Triggered: true}}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := config.Config{TriggerPhrase: "@bot"}
	srv := New(cfg, fb, nil, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	res, _ := postJSON(t, ts.URL+"/a2a/agent/summarizeBot",
		`{"message":"@bot summarize","userId":"test-user","channelId":"chan-42"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(logs.String(), "channel_id=chan-42") {
		t.Fatalf("request log missing channel identity: %q", logs.String())
	}
}

func TestA2AMissingMessage(t *testing.T) {
	fb := &fakeBot{}
	ts := newTestServer(t, fb)

	res, body := postJSON(t, ts.URL+"/a2a/agent/summarizeBot", `{"userId":"test-user"}`)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
	if body["error"] == nil {
		t.Fatalf("error field missing: %v", body)
	}
	if len(fb.calls) != 0 {
		t.Fatalf("bot was invoked for empty payload")
	}
}

func TestA2AServerError(t *testing.T) {
	fb := &fakeBot{err: errors.New("store write failed")}
	ts := newTestServer(t, fb)

	res, body := postJSON(t, ts.URL+"/a2a/agent/summarizeBot", `{"message":"@bot summarize"}`)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.StatusCode)
	}
	if body["error"] != "Server error" {
		t.Fatalf("error = %v, want Server error", body["error"])
	}
	if body["message"] == nil {
		t.Fatalf("message field missing: %v", body)
	}
}

func TestWebhookRespondsToMessage(t *testing.T) {
	fb := &fakeBot{reply: bot.Reply{Text: "summary text", Triggered: true}}
	ts := newTestServer(t, fb)

	res, body := postJSON(t, ts.URL+"/webhook",
		`{"text":"@bot summarize this text","user_id":"test-user","channel_id":"test-channel"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("ok = %v, want true", body["ok"])
	}
	if body["response"] != "summary text" {
		t.Fatalf("response = %v", body["response"])
	}
	if fb.users[0] != "test-user" {
		t.Fatalf("bot user = %q, want test-user", fb.users[0])
	}
}

func TestWebhookNonTriggeredStillOK(t *testing.T) {
	fb := &fakeBot{reply: bot.Reply{Text: "Hi! Mention me with '@bot summarize' to use me!"}}
	ts := newTestServer(t, fb)

	res, body := postJSON(t, ts.URL+"/webhook", `{"text":"Just a regular message","user_id":"test-user"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	if body["ok"] != true {
		t.Fatalf("ok = %v, want true", body["ok"])
	}
}

func TestWebhookMissingText(t *testing.T) {
	fb := &fakeBot{}
	ts := newTestServer(t, fb)

	res, body := postJSON(t, ts.URL+"/webhook", `{"user_id":"test-user"}`)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
	if body["ok"] != false {
		t.Fatalf("ok = %v, want false", body["ok"])
	}
	if len(fb.calls) != 0 {
		t.Fatalf("bot was invoked without text")
	}
}

func TestRootDescriptor(t *testing.T) {
	ts := newTestServer(t, &fakeBot{})

	res, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	endpoints, _ := body["endpoints"].(map[string]any)
	if endpoints["a2a"] != "/a2a/agent/summarizeBot" {
		t.Fatalf("endpoints = %v", endpoints)
	}
}

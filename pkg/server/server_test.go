package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/server"
	"github.com/goliatone/go-schemaform/pkg/store"
)

func newTestServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	st, err := store.NewFSStore(store.EmbeddedFS())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	srv := server.New(
		orchestrator.New(orchestrator.WithStore(st)),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, wantStatus int, into any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d: %s", url, resp.StatusCode, wantStatus, body)
	}
	if into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
}

type fieldJSON struct {
	Key      string      `json:"key"`
	FullKey  string      `json:"fullKey"`
	Label    string      `json:"label"`
	Control  string      `json:"control"`
	Children []fieldJSON `json:"children"`
}

type formJSON struct {
	Name     string         `json:"name"`
	Mode     string         `json:"mode"`
	Fields   []fieldJSON    `json:"fields"`
	Defaults map[string]any `json:"defaults"`
}

func TestHealthAndList(t *testing.T) {
	_, ts := newTestServer(t)

	var health map[string]any
	getJSON(t, ts.URL+"/healthz", http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", health)
	}

	var list struct {
		Forms []string `json:"forms"`
	}
	getJSON(t, ts.URL+"/forms", http.StatusOK, &list)
	if diff := cmp.Diff([]string{"article", "signup"}, list.Forms); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorsPerMode(t *testing.T) {
	_, ts := newTestServer(t)

	var edit formJSON
	getJSON(t, ts.URL+"/forms/article?mode=edit", http.StatusOK, &edit)
	if edit.Mode != "edit" || edit.Fields[0].Label != "Rename article" {
		t.Fatalf("edit override missing: %+v", edit.Fields[0])
	}
	if got := edit.Fields[3].Children[0].FullKey; got != "tags[index].name" {
		t.Fatalf("unexpected array child key %q", got)
	}

	var readonly formJSON
	getJSON(t, ts.URL+"/forms/article?mode=readonly", http.StatusOK, &readonly)
	if readonly.Fields[1].Control != "text" {
		t.Fatalf("readonly override missing: %+v", readonly.Fields[1])
	}

	var unknown formJSON
	getJSON(t, ts.URL+"/forms/article?mode=bogus", http.StatusOK, &unknown)
	if unknown.Mode != "" || unknown.Fields[0].Label != "Title" {
		t.Fatalf("unknown mode should compose base attributes: %+v", unknown)
	}

	getJSON(t, ts.URL+"/forms/missing", http.StatusNotFound, nil)
}

func TestDefaultsAndRows(t *testing.T) {
	_, ts := newTestServer(t)

	var defaults map[string]any
	getJSON(t, ts.URL+"/forms/article/defaults", http.StatusOK, &defaults)
	want := map[string]any{
		"title":  "Untitled",
		"status": "draft",
		"author": map[string]any{"name": nil, "email": nil},
		"tags":   []any{map[string]any{"name": "x"}},
		"notes":  nil,
	}
	if diff := cmp.Diff(want, defaults); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	var row struct {
		FullKey  string         `json:"fullKey"`
		Template map[string]any `json:"template"`
	}
	getJSON(t, ts.URL+"/forms/article/rows/tags", http.StatusOK, &row)
	if diff := cmp.Diff(map[string]any{"name": "x"}, row.Template); diff != "" {
		t.Fatalf("row template mismatch (-want +got):\n%s", diff)
	}

	getJSON(t, ts.URL+"/forms/article/rows/title", http.StatusBadRequest, nil)
	getJSON(t, ts.URL+"/forms/article/rows/nope", http.StatusNotFound, nil)
}

func TestRenderHTML(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/forms/signup/render/html?mode=create")
	if err != nil {
		t.Fatalf("GET render: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{`data-form="signup"`, `type="password"`, `name="email"`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}

	getJSON(t, ts.URL+"/forms/signup/render/pdf", http.StatusNotFound, nil)
}

type serverMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func TestPreviewSocket(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/forms/article/ws?mode=create"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() serverMessage {
		t.Helper()
		var msg serverMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	hello := read()
	if hello.Type != server.MessageSession || hello.SessionID == "" {
		t.Fatalf("unexpected hello: %+v", hello)
	}
	if _, ok := srv.Sessions().Get(hello.SessionID); !ok {
		t.Fatalf("session %s not tracked", hello.SessionID)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "mode", "id": "1", "data": map[string]string{"mode": "edit"}}); err != nil {
		t.Fatalf("write mode: %v", err)
	}
	switched := read()
	var form formJSON
	if err := json.Unmarshal(switched.Data, &form); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if switched.Type != server.MessageForm || switched.RequestID != "1" || form.Fields[0].Label != "Rename article" {
		t.Fatalf("mode switch not recomputed: %+v %+v", switched, form.Fields[0])
	}
	if switched.SessionID != hello.SessionID {
		t.Fatalf("session id changed: %s vs %s", switched.SessionID, hello.SessionID)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "append", "id": "2", "data": map[string]string{"fullKey": "tags"}}); err != nil {
		t.Fatalf("write append: %v", err)
	}
	appended := read()
	if appended.Type != server.MessageRow || !strings.Contains(string(appended.Data), `"name":"x"`) {
		t.Fatalf("unexpected append reply: %+v (%s)", appended, appended.Data)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "ping", "id": "3"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if pong := read(); pong.Type != server.MessagePong || pong.RequestID != "3" {
		t.Fatalf("unexpected pong: %+v", pong)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"type": "shout"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	if failure := read(); failure.Type != server.MessageError {
		t.Fatalf("expected error reply, got %+v", failure)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestPreviewUnknownForm(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/forms/missing/ws"
	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

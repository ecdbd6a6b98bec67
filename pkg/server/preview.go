package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Message types exchanged on the preview socket.
const (
	MessageMode    = "mode"
	MessageAppend  = "append"
	MessagePing    = "ping"
	MessagePong    = "pong"
	MessageSession = "session"
	MessageForm    = "form"
	MessageRow     = "row"
	MessageError   = "error"
)

// ClientMessage is the envelope for client-to-server preview messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ModeData is the payload of "mode" messages.
type ModeData struct {
	Mode string `json:"mode"`
}

// AppendData is the payload of "append" messages.
type AppendData struct {
	FullKey string `json:"fullKey"`
}

// ServerMessage is the envelope for server-to-client preview messages. Every
// message carries the session id.
type ServerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handlePreview upgrades to a websocket and serves one preview session. The
// form is rebuilt on every mode switch; nothing is cached between messages.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	mode := parseMode(r)

	// Resolve before upgrading so unknown forms get a plain HTTP error.
	form, err := s.orch.Build(r.Context(), orchestrator.Request{Name: name, Mode: mode})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket accept", "form", name, "error", err)
		return
	}
	defer conn.CloseNow()

	session := s.sessions.Create(name, mode)
	defer s.sessions.Remove(session.ID)
	logger := s.logger.With("session", session.ID, "form", name)
	logger.Info("preview session opened")

	ctx := r.Context()
	s.send(ctx, conn, ServerMessage{Type: MessageSession, SessionID: session.ID, Data: newFormPayload(form)})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				logger.Info("preview session closed", "status", status)
			} else if ctx.Err() == nil {
				logger.Warn("preview read", "error", err)
			}
			return
		}

		switch msg.Type {
		case MessageMode:
			s.handleModeMessage(ctx, conn, session, msg)
		case MessageAppend:
			s.handleAppendMessage(ctx, conn, session, msg)
		case MessagePing:
			s.send(ctx, conn, ServerMessage{Type: MessagePong, SessionID: session.ID, RequestID: msg.ID})
		default:
			s.sendError(ctx, conn, session, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (s *Server) handleModeMessage(ctx context.Context, conn *websocket.Conn, session *Session, msg ClientMessage) {
	var data ModeData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		s.sendError(ctx, conn, session, msg.ID, "invalid_data", "invalid mode data")
		return
	}
	mode, _ := schema.ParseMode(data.Mode)

	form, err := s.orch.Build(ctx, orchestrator.Request{Name: session.Form, Mode: mode})
	if err != nil {
		s.sendError(ctx, conn, session, msg.ID, "build_error", err.Error())
		return
	}
	session.setMode(mode)
	s.send(ctx, conn, ServerMessage{
		Type:      MessageForm,
		SessionID: session.ID,
		RequestID: msg.ID,
		Data:      newFormPayload(form),
	})
}

func (s *Server) handleAppendMessage(ctx context.Context, conn *websocket.Conn, session *Session, msg ClientMessage) {
	var data AppendData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.FullKey == "" {
		s.sendError(ctx, conn, session, msg.ID, "invalid_data", "invalid append data")
		return
	}

	form, err := s.orch.Build(ctx, orchestrator.Request{Name: session.Form, Mode: session.Mode()})
	if err != nil {
		s.sendError(ctx, conn, session, msg.ID, "build_error", err.Error())
		return
	}
	row, err := rowTemplate(form, data.FullKey)
	if err != nil {
		s.sendError(ctx, conn, session, msg.ID, "append_error", err.Error())
		return
	}
	s.send(ctx, conn, ServerMessage{
		Type:      MessageRow,
		SessionID: session.ID,
		RequestID: msg.ID,
		Data:      row,
	})
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		s.logger.Warn("preview write", "session", msg.SessionID, "error", err)
	}
}

func (s *Server) sendError(ctx context.Context, conn *websocket.Conn, session *Session, requestID, code, message string) {
	s.send(ctx, conn, ServerMessage{
		Type:      MessageError,
		SessionID: session.ID,
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/validator"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.SessionService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	Option        string `json:"option"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type keyPayload struct {
	Key string `json:"key"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// connection is the navigation host of one socket. Session callbacks queue
// messages here; only the writer goroutine touches the socket.
type connection struct {
	send      chan outboundMessage[any]
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection() *connection {
	return &connection{
		send: make(chan outboundMessage[any], 32),
		done: make(chan struct{}),
	}
}

func (c *connection) push(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.done:
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *connection) Notify(n domain.Notice)                { c.push("notice", n) }
func (c *connection) Finished(summary domain.ResultSummary) { c.push("result", summary) }
func (c *connection) Cancelled(sig domain.CancelSignal)     { c.push("cancelled", sig) }

func (c *connection) fail(err error) {
	payload := errorPayload{Message: err.Error()}
	var ve *validator.Error
	if errors.As(err, &ve) {
		payload.Fields = ve.Fields
	}
	c.push("error", payload)
}

// ServeWS upgrades HTTP requests to websockets. The first message must be "start"
// carrying the exam parameters; every later message drives the session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.With().Str("conn_id", uuid.NewString()).Logger()
	c := newConnection()
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Debug().Err(err).Msg("ws write error")
					c.close()
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	var session *app.Session
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if session == nil {
			session = h.start(r.Context(), c, inbound, log)
			continue
		}
		h.dispatch(r.Context(), c, session, inbound)
	}

	c.close()
	<-writerDone
	if session != nil {
		h.release(session)
		log.Info().Int("exam_progress_id", session.ExamProgressID()).Msg("connection closed")
	}
}

func (h *WSHandler) start(ctx context.Context, c *connection, inbound inboundMessage, log zerolog.Logger) *app.Session {
	if inbound.Type != "start" {
		c.fail(errors.New("session not started"))
		return nil
	}
	var params domain.ExamParams
	if err := json.Unmarshal(inbound.Payload, &params); err != nil {
		c.fail(errors.New("invalid start payload"))
		return nil
	}
	session, err := h.service.Start(ctx, params, c, app.WithTickObserver(func(st domain.TimerState) {
		c.push("timer", st)
	}))
	if err != nil {
		log.Info().Err(err).Int("exam_progress_id", params.ExamProgressID).Msg("start rejected")
		c.fail(err)
		return nil
	}
	c.push("state", session.Snapshot())
	return session
}

func (h *WSHandler) dispatch(ctx context.Context, c *connection, session *app.Session, inbound inboundMessage) {
	var err error
	switch inbound.Type {
	case "select":
		var p selectPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			c.fail(errors.New("invalid select payload"))
			return
		}
		err = session.SelectAnswer(p.Option, p.QuestionIndex)
	case "next":
		err = session.Advance()
	case "prev":
		err = session.Retreat()
	case "jump":
		var p jumpPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			c.fail(errors.New("invalid jump payload"))
			return
		}
		err = session.JumpTo(p.Index)
	case "end":
		_, err = session.EndQuiz()
	case "cancel":
		err = session.CancelPrompt()
	case "confirm":
		_, err = session.ConfirmSubmit(ctx)
	case "submit":
		_, err = session.Submit(ctx)
	case "exit":
		if session.RequestExit() != nil {
			c.push("exitBlocked", domain.Notice{Message: "Leaving now discards the exam in progress. Confirm to exit."})
			return
		}
	case "confirmExit":
		session.ConfirmExit()
	case "key":
		var p keyPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			c.fail(errors.New("invalid key payload"))
			return
		}
		if session.InterceptKey(p.Key) {
			c.push("keyBlocked", p)
		}
		return
	case "state":
	default:
		c.fail(errors.New("unsupported message type"))
		return
	}
	if err != nil {
		c.fail(err)
	}

	snap := session.Snapshot()
	if snap.Prompt != nil && (inbound.Type == "next" || inbound.Type == "end") {
		c.push("prompt", snap.Prompt)
	}
	c.push("state", snap)
}

// release drops the session when the socket goes away. A session that already
// finished or was never registered is only closed.
func (h *WSHandler) release(session *app.Session) {
	id := session.ExamProgressID()
	if live, err := h.service.Get(id); err == nil && live == session {
		h.service.Abandon(id)
		return
	}
	session.Close()
}

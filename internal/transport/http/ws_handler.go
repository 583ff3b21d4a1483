package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"math-physical/internal/app"
	"math-physical/internal/domain"
	"math-physical/internal/view"
)

// AppFactory builds the client state of one connection. onTick receives the
// stopwatch display while a quiz runs and must not block.
type AppFactory func(onTick func(clock string)) *app.App

type WSHandler struct {
	newApp   AppFactory
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(newApp AppFactory, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		newApp: newApp,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type topicsPayload struct {
	Course string `json:"course"`
}

// answerPayload addresses the choice by its position in the question.
type answerPayload struct {
	Index *int `json:"index"`
}

type savePayload struct {
	Name string `json:"name"`
}

type infoPayload struct {
	ID string `json:"id"`
}

type topicsResult struct {
	Course string   `json:"course"`
	Topics []string `json:"topics"`
}

type readyPayload struct {
	ClientID string       `json:"clientId"`
	Menu     app.MenuView `json:"menu"`
}

type tickPayload struct {
	Clock string `json:"clock"`
}

type savedPayload struct {
	Saved bool `json:"saved"`
}

// questionPayload adds browser-ready forms of the question text: newlines
// as <br> and the text split into literal and math segments.
type questionPayload struct {
	app.QuestionView
	TextHTML string         `json:"textHtml"`
	Segments []view.Segment `json:"segments"`
}

type answerResult struct {
	app.AnswerView
	Next *questionPayload `json:"next,omitempty"`
}

func renderQuestion(q app.QuestionView) questionPayload {
	return questionPayload{
		QuestionView: q,
		TextHTML:     view.LineBreaks(q.Text),
		Segments:     view.SplitMath(q.Text, view.ExtendedDelimiters),
	}
}

type outboundMessage[T any] struct {
	Type    string        `json:"type"`
	Screen  domain.Screen `json:"screen,omitempty"`
	Payload T             `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// clientConn is the per-connection plumbing shared by the read loop, the
// request worker and the writer.
type clientConn struct {
	app          *app.App
	send         chan outboundMessage[any]
	jobs         chan func()
	closeSignals chan struct{}
	writerDone   chan struct{}
	logger       *zap.Logger

	mu     sync.Mutex
	base   context.Context
	ctx    context.Context
	cancel context.CancelFunc
}

// requestContext returns the context that requests read from now on run under.
func (c *clientConn) requestContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// interrupt cancels every request already read and starts a fresh context
// for the ones that follow.
func (c *clientConn) interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(c.base)
}

func (c *clientConn) emit(typ string, payload any) {
	msg := outboundMessage[any]{Type: typ, Payload: payload}
	if c.app != nil {
		msg.Screen = c.app.Screen()
	}
	select {
	case c.send <- msg:
	case <-c.closeSignals:
	case <-c.writerDone:
	}
}

func (c *clientConn) fail(err error) {
	c.logger.Debug("request failed", zap.Error(err))
	c.emit("error", errorPayload{Kind: errorKind(err), Message: err.Error()})
}

// ServeWS upgrades the request and runs one client: every connection gets
// its own App, which is reset when the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	clientID := uuid.NewString()
	c := &clientConn{
		send:         make(chan outboundMessage[any], 16),
		jobs:         make(chan func(), 64),
		closeSignals: make(chan struct{}),
		writerDone:   make(chan struct{}),
		logger:       h.logger.With(zap.String("client", clientID)),
		base:         ctx,
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.app = h.newApp(func(clock string) {
		select {
		case c.send <- outboundMessage[any]{Type: "tick", Screen: domain.ScreenGame, Payload: tickPayload{Clock: clock}}:
		case <-c.closeSignals:
		default:
		}
	})

	go func() {
		defer close(c.writerDone)
		for msg := range c.send {
			if err := ws.WriteJSON(msg); err != nil {
				c.logger.Info("ws write error", zap.Error(err))
				return
			}
		}
	}()

	c.logger.Info("client connected")
	menu, err := c.app.LoadCatalog(ctx)
	if err != nil {
		c.fail(err)
	}
	c.emit("ready", readyPayload{ClientID: clientID, Menu: menu})

	// requests are handled one at a time in the order they were read
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for job := range c.jobs {
			job()
		}
	}()

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "home" {
			c.interrupt()
		}
		reqCtx := c.requestContext()
		c.jobs <- func() { h.dispatch(reqCtx, c, inbound) }
	}

	close(c.closeSignals)
	cancel()
	close(c.jobs)
	<-workerDone
	c.app.Reset()
	close(c.send)
	<-c.writerDone
	c.logger.Info("client disconnected")
}

// dispatch handles one inbound message on the connection's worker. A "home"
// request cancels whatever is still queued or in flight before it runs.
func (h *WSHandler) dispatch(ctx context.Context, c *clientConn, in inboundMessage) {
	a := c.app
	switch in.Type {
	case "topics":
		var p topicsPayload
		if !decode(c, in.Payload, &p) {
			return
		}
		topics, err := a.Topics(p.Course)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("topics", topicsResult{Course: p.Course, Topics: topics})
	case "start":
		var p app.SelectionInput
		if !decode(c, in.Payload, &p) {
			return
		}
		article, err := a.Start(ctx, p)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("article", article)
	case "beginQuiz":
		q, err := a.BeginQuiz(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("question", renderQuestion(q))
	case "answer":
		var p answerPayload
		if !decode(c, in.Payload, &p) {
			return
		}
		if p.Index == nil {
			c.emit("error", errorPayload{Kind: "invalid", Message: "choice index is required"})
			return
		}
		out, err := a.Answer(*p.Index)
		if err != nil {
			c.fail(err)
			return
		}
		res := answerResult{AnswerView: out}
		if out.Next != nil {
			next := renderQuestion(*out.Next)
			res.Next = &next
		}
		c.emit("answer", res)
	case "saveScore":
		var p savePayload
		if !decode(c, in.Payload, &p) {
			return
		}
		if err := a.SaveScore(ctx, p.Name); err != nil {
			c.fail(err)
			return
		}
		c.emit("scoreSaved", savedPayload{Saved: true})
	case "ranking":
		rv, err := a.ShowRanking(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("ranking", rv)
	case "backToResult":
		rv, err := a.BackToResult()
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("result", rv)
	case "info":
		var p infoPayload
		if !decode(c, in.Payload, &p) {
			return
		}
		panel, err := a.ShowInfo(p.ID)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("info", panel)
	case "home":
		a.Reset()
		menu, err := a.LoadCatalog(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("menu", menu)
	default:
		c.emit("error", errorPayload{Kind: "unsupported", Message: "unsupported message type"})
	}
}

func decode(c *clientConn, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.emit("error", errorPayload{Kind: "invalid", Message: "invalid payload"})
		return false
	}
	return true
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrDataUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrEmptyResult):
		return "empty"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrProtocol):
		return "protocol"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	case errors.Is(err, domain.ErrNoSelection):
		return "noSelection"
	case errors.Is(err, domain.ErrSessionNotActive):
		return "notActive"
	case errors.Is(err, domain.ErrChoiceNotFound):
		return "choiceNotFound"
	case errors.Is(err, domain.ErrPanelNotFound):
		return "notFound"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

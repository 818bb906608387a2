// Package ws serves the push channel: clients subscribe with a view and
// receive a projection of the shared snapshot on every broadcast tick.
package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/service/metrics"
	"TokenPull/internal/usecase"
	applogger "TokenPull/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type Option func(*TokensWSHandler)

// WithPingInterval sets how often the server pings. A client that misses two
// pings is dropped.
func WithPingInterval(d time.Duration) Option {
	return func(h *TokensWSHandler) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(h *TokensWSHandler) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func WithReadLimit(n int64) Option {
	return func(h *TokensWSHandler) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithBufferSize sets the per-connection outbound queue length.
func WithBufferSize(n int) Option {
	return func(h *TokensWSHandler) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithDefaultLimit sets the page size of a view with no explicit limit.
func WithDefaultLimit(n int) Option {
	return func(h *TokensWSHandler) {
		if n > 0 {
			h.defaultLimit = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(h *TokensWSHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

type TokensWSHandler struct {
	bc       *usecase.Broadcaster
	upgrader websocket.Upgrader
	logger   *applogger.Logger
	seq      atomic.Uint64

	pingInterval time.Duration
	writeTimeout time.Duration
	readLimit    int64
	bufferSize   int
	defaultLimit int
}

func NewTokensWSHandler(bc *usecase.Broadcaster, opts ...Option) *TokensWSHandler {
	metrics.Register()
	h := &TokensWSHandler{
		bc: bc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:       applogger.Nop(),
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		readLimit:    64 << 10,
		bufferSize:   16,
		defaultLimit: 25,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TokensWSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the connection and runs it until the client goes away.
func (h *TokensWSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Debug("ws: upgrade failed", applogger.Error(err))
		return nil
	}

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	id := fmt.Sprintf("%x-%d", time.Now().UnixNano(), h.seq.Add(1))
	sub := usecase.NewSubscription(id, h.bufferSize)
	log := h.logger.With(applogger.String("client_id", id))
	log.Info("ws: connected", applogger.String("remote", c.RealIP()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, sub, log)
	}()

	h.bc.Connect(sub, models.Preferences{}.View(h.defaultLimit))
	h.readPump(conn, sub, log)

	h.bc.Disconnect(id)
	<-writerDone
	_ = conn.Close()
	log.Info("ws: disconnected")
	return nil
}

func (h *TokensWSHandler) readPump(conn *websocket.Conn, sub *usecase.Subscription, log *applogger.Logger) {
	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(h.readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("ws: read failed", applogger.Error(err))
			}
			return
		}
		h.handleMessage(sub, data, log)
	}
}

func (h *TokensWSHandler) handleMessage(sub *usecase.Subscription, data []byte, log *applogger.Logger) {
	var in models.InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		h.sendError(sub, "invalid message")
		return
	}
	metrics.WSMessages.WithLabelValues("in", in.Event).Inc()

	switch in.Event {
	case models.EventSubscribe, models.EventUpdatePreferences:
		var prefs models.Preferences
		if len(in.Data) > 0 && string(in.Data) != "null" {
			if err := json.Unmarshal(in.Data, &prefs); err != nil {
				h.sendError(sub, "invalid preferences")
				return
			}
		}
		v := prefs.View(h.defaultLimit)
		if in.Event == models.EventSubscribe {
			h.send(sub, models.OutboundMessage{
				Event: models.EventSubscribed,
				Data:  models.SubscribedPayload{ClientID: sub.ID, View: v},
			})
		}
		if err := h.bc.Update(sub.ID, v); err != nil {
			log.Debug("ws: update view", applogger.Error(err))
		}
	default:
		h.sendError(sub, fmt.Sprintf("unknown event %q", in.Event))
	}
}

func (h *TokensWSHandler) sendError(sub *usecase.Subscription, msg string) {
	h.send(sub, models.OutboundMessage{Event: models.EventError, Data: models.ErrorPayload{Message: msg}})
}

func (h *TokensWSHandler) send(sub *usecase.Subscription, msg models.OutboundMessage) {
	if err := sub.Push(msg); err != nil && errors.Is(err, usecase.ErrBufferFull) {
		metrics.WSDropped.Inc()
	}
}

// writePump is the only goroutine that writes data frames to conn.
func (h *TokensWSHandler) writePump(conn *websocket.Conn, sub *usecase.Subscription, log *applogger.Logger) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.writeTimeout))
			return
		case msg := <-sub.Out():
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws: write failed", applogger.Error(err))
				_ = conn.Close()
				return
			}
			metrics.WSMessages.WithLabelValues("out", msg.Event).Inc()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

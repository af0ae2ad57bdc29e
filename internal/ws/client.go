package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Zachkp/folio/internal/goroutine"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/portfolio"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Commands a browser may send.
const (
	CommandScroll        = "scroll"
	CommandToggleTheme   = "toggle_theme"
	CommandToggleMenu    = "toggle_menu"
	CommandDismissNotice = "dismiss_notice"
)

// Dispatcher applies browser commands to a session.
type Dispatcher interface {
	Dispatch(ctx context.Context, id uuid.UUID, a portfolio.Action) ([]portfolio.Event, error)
	DismissNotice(id uuid.UUID, noticeID string) error
}

// Client is one websocket connection of a page.
type Client struct {
	conn       *websocket.Conn
	hub        *Hub
	dispatcher Dispatcher
	sessionID  uuid.UUID
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	sendOnce   sync.Once
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn, hub *Hub, dispatcher Dispatcher, sessionID uuid.UUID) *Client {
	return &Client{
		conn:       conn,
		hub:        hub,
		dispatcher: dispatcher,
		sessionID:  sessionID,
		send:       make(chan []byte, 32),
		done:       make(chan struct{}),
	}
}

// Run pumps messages until the connection closes.
func (c *Client) Run(ctx context.Context) {
	goroutine.SafeGo(c.writePump)
	c.readPump(ctx)
}

// Close unregisters the client and closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.Unregister(c)
		_ = c.conn.Close()
	})
}

// closeSend is only called by the hub while it holds its lock, so it never
// races with a send.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

func (c *Client) log() *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{"component": "ws", "session": c.sessionID})
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log().WithError(err).Debug("connection closed unexpectedly")
			}
			return
		}
		c.handle(ctx, raw)
	}
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log().WithError(err).Warn("malformed message")
		return
	}

	var err error
	switch env.Type {
	case CommandScroll:
		var tick portfolio.ScrollTick
		if err = json.Unmarshal(env.Data, &tick); err == nil {
			_, err = c.dispatcher.Dispatch(ctx, c.sessionID, portfolio.ScrollAction(tick))
		}
	case CommandToggleTheme:
		_, err = c.dispatcher.Dispatch(ctx, c.sessionID, portfolio.ToggleThemeAction())
	case CommandToggleMenu:
		_, err = c.dispatcher.Dispatch(ctx, c.sessionID, portfolio.ToggleMenuAction())
	case CommandDismissNotice:
		var body struct {
			ID string `json:"id"`
		}
		if err = json.Unmarshal(env.Data, &body); err == nil {
			err = c.dispatcher.DismissNotice(c.sessionID, body.ID)
		}
	default:
		c.log().WithField("type", env.Type).Warn("unknown message type")
		return
	}

	if err != nil {
		c.log().WithError(err).WithField("type", env.Type).Warn("command failed")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/session"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsStream is an upgraded connection whose context ends when the client
// disconnects, the request ends or the user signs out.
type wsStream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
}

func openStream(c echo.Context, tracker *session.Tracker, userID string) (*wsStream, error) {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := tracker.Bind(c.Request().Context(), userID)
	ws := &wsStream{conn: conn, ctx: ctx, cancel: cancel, ticker: time.NewTicker(pingPeriod)}
	go ws.readPump()
	return ws, nil
}

// readPump discards client frames and notices when the client goes away
func (ws *wsStream) readPump() {
	defer ws.cancel()
	ws.conn.SetReadLimit(512)
	_ = ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (ws *wsStream) send(v interface{}) error {
	_ = ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.conn.WriteJSON(v)
}

func (ws *wsStream) ping() error {
	return ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (ws *wsStream) Close() {
	ws.ticker.Stop()
	ws.cancel()
	_ = ws.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	_ = ws.conn.Close()
}

// pump writes every update as JSON until the stream ends
func pump[T any](ws *wsStream, updates <-chan T) {
	for {
		select {
		case <-ws.ctx.Done():
			return
		case v, ok := <-updates:
			if !ok {
				return
			}
			if err := ws.send(v); err != nil {
				return
			}
		case <-ws.ticker.C:
			if err := ws.ping(); err != nil {
				return
			}
		}
	}
}

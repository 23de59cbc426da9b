package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"strangerchat/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// WebSocketClient implements Client over a gorilla/websocket connection.
// Every text frame is one JSON Envelope.
type WebSocketClient struct {
	Ident Identity
	Conn  *websocket.Conn
	Hub   *ManagerService
	Send  chan models.Outbound

	closeOnce sync.Once
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, ident Identity, buffer int) *WebSocketClient {
	return &WebSocketClient{
		Ident: ident,
		Conn:  conn,
		Hub:   hub,
		Send:  make(chan models.Outbound, buffer),
	}
}

func (c *WebSocketClient) GetParticipantID() string               { return c.Ident.ParticipantID }
func (c *WebSocketClient) GetIdentity() Identity                  { return c.Ident }
func (c *WebSocketClient) GetSendChannel() chan<- models.Outbound { return c.Send }

// Heartbeats is true: pongs refresh lastSeenAt.
func (c *WebSocketClient) Heartbeats() bool { return true }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and with it the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Hub.Touch(c.Ident.ParticipantID)
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("websocket read failed", zap.String("participant_id", c.Ident.ParticipantID), zap.Error(err))
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			zap.L().Debug("dropping undecodable frame", zap.String("participant_id", c.Ident.ParticipantID), zap.Error(err))
			continue
		}
		c.Hub.IncomingCh <- models.Inbound{ParticipantID: c.Ident.ParticipantID, Envelope: env}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				zap.L().Debug("websocket write failed", zap.String("participant_id", c.Ident.ParticipantID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

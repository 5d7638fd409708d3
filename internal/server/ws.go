package server

import (
	"encoding/json"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"

	"eventreview/internal/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 64 * 1024
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// the dashboard only listens locally
		return true
	},
}

func (s *Server) websocketUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(s.hub)
	if !s.hub.Register(client) {
		conn.WriteControl(gws.CloseMessage,
			gws.FormatCloseMessage(gws.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go s.writePump(conn, client)
	go s.readPump(conn, client)
}

// writePump moves messages from the hub to the connection.
func (s *Server) writePump(conn *gws.Conn, client *websocket.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(gws.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gws.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles client commands until the connection drops.
func (s *Server) readPump(conn *gws.Conn, client *websocket.Client) {
	defer func() {
		s.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		s.handleClientMessage(client, data)
	}
}

func (s *Server) handleClientMessage(client *websocket.Client, data []byte) {
	var msg websocket.Message
	var reply websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		reply = websocket.NewMessage(websocket.TypeError, websocket.ErrorPayload{
			Code:    ErrBadRequest,
			Message: "Invalid message",
		})
	} else if msg.Type == websocket.TypePing {
		reply = websocket.NewMessage(websocket.TypePong, nil)
	} else {
		reply = websocket.NewMessage(websocket.TypeError, websocket.ErrorPayload{
			Code:         ErrBadRequest,
			Message:      "Unsupported message type",
			OriginalType: string(msg.Type),
		})
	}

	out, err := reply.JSON()
	if err != nil {
		return
	}
	if !client.Queue(out) {
		s.logger.Debug("websocket client buffer full, reply dropped", "type", reply.Type)
	}
}

package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/HSouheill/vendor_settlement/services"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS middleware and the token check
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an authenticated admin request and attaches it to the hub.
func HandleWebSocket(c echo.Context, hub *Hub, adminID string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		AdminID: adminID,
		conn:    conn,
		send:    make(chan []byte, clientBuffer),
		hub:     hub,
	}

	welcome, _ := json.Marshal(services.Event{
		Type:    "connected",
		Message: "Admin feed connected",
	})
	client.send <- welcome

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

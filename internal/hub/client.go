package hub

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CommandHandler applies client commands to the settings.
type CommandHandler interface {
	Edit(fields map[string]any)
	SaveNow() error
	ResetDefaults() error
}

// Client represents a connected WebSocket client.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.SugaredLogger
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: hub.logger,
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// ReadPumpWithHandler reads messages from the WebSocket and handles client commands.
func (c *Client) ReadPumpWithHandler(handler CommandHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Debugw("error parsing client message", "error", err)
			c.reply(NewErrorMessage("malformed message"))
			continue
		}

		switch clientMsg.Type {
		case CmdUpdate:
			if len(clientMsg.Fields) > 0 {
				handler.Edit(clientMsg.Fields)
			}
		case CmdSaveNow:
			if err := handler.SaveNow(); err != nil {
				c.logger.Warnw("save failed", "error", err)
				c.reply(NewErrorMessage(err.Error()))
			}
		case CmdResetDefaults:
			if err := handler.ResetDefaults(); err != nil {
				c.logger.Warnw("reset failed", "error", err)
				c.reply(NewErrorMessage(err.Error()))
			}
		default:
			c.reply(NewErrorMessage("unknown message type " + clientMsg.Type))
		}
	}
}

// reply sends msg to this client only.
func (c *Client) reply(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.sendTo(c, data)
}

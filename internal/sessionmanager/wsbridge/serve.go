package wsbridge

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/sessionmanager"
)

// Serve registers conn as a new client streaming sessionID's events,
// subscribing to mgr and pumping every event to the socket as JSON until
// the subscription channel closes or the connection drops. Blocks until
// the stream ends; callers run it on its own goroutine per connection.
func Serve(hub *Hub, mgr *sessionmanager.Manager, sessionID string, conn *websocket.Conn, log *logger.Logger) {
	ch, unsubscribe, err := mgr.Subscribe(sessionID)
	if err != nil {
		log.Warn("wsbridge subscribe failed", zap.String("sessionId", sessionID), zap.Error(err))
		_ = conn.Close()
		return
	}
	defer unsubscribe()

	client := newClient(uuid.NewString(), sessionID, conn, hub, log)
	hub.register(client)

	go client.writePump()
	go client.readPump()

	for event := range ch {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error("wsbridge marshal failed", zap.String("sessionId", sessionID), zap.Error(err))
			continue
		}
		if !client.enqueue(data) {
			log.Warn("wsbridge client too slow, disconnecting", zap.String("clientId", client.ID), zap.String("sessionId", sessionID))
			hub.unregister(client)
			return
		}
	}

	hub.unregister(client)
}

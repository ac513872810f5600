package server

import (
	"encoding/json"
	"net/http"
	"time"

	"watershed-sync/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *MonitorServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			// Drop every client on shutdown
			s.stateMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()
			return

		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			s.stateMutex.Unlock()

			// Send the recent history so a late joiner sees where the run is
			client.send <- s.initialFrame()

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case message := <-s.broadcast:
			s.stateMutex.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// PublishEvent records a run event and pushes it to every connected client.
// Lifecycle kinds also flip the running flag the status handlers report.
// Publishes on a stopped server are dropped.
func (s *MonitorServer) PublishEvent(event models.MProgressEvent) {
	if s.isStopped() {
		return
	}

	s.events.Append(event)

	switch event.Kind {
	case models.EventStarted:
		s.stateMutex.Lock()
		s.running = true
		s.currentRun = event.RunID
		s.stateMutex.Unlock()
	case models.EventCompleted, models.EventFailed:
		s.stateMutex.Lock()
		s.running = false
		s.stateMutex.Unlock()
	}

	s.broadcast <- &models.MHubMessage{
		Type:      "EVENT",
		Event:     &event,
		Timestamp: time.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------

// PublishSummary retains the finished run and pushes it to every client.
// Publishes on a stopped server are dropped.
func (s *MonitorServer) PublishSummary(summary models.MRunSummary) {
	if s.isStopped() {
		return
	}

	s.stateMutex.Lock()
	s.lastSummary = &summary
	s.runHistory = append(s.runHistory, summary)
	if len(s.runHistory) > runHistoryLimit {
		s.runHistory = s.runHistory[len(s.runHistory)-runHistoryLimit:]
	}
	s.running = false
	s.currentRun = ""
	s.stateMutex.Unlock()

	s.broadcast <- &models.MHubMessage{
		Type:      "SUMMARY",
		Summary:   &summary,
		Timestamp: time.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------------------------

func (s *MonitorServer) initialFrame() *models.MHubMessage {
	s.stateMutex.RLock()
	summary := s.lastSummary
	s.stateMutex.RUnlock()

	return &models.MHubMessage{
		Type:      "INITIAL",
		Events:    s.events.GetLatest(50),
		Summary:   summary,
		Timestamp: time.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) handleWebSocket(c *gin.Context) {
	if s.isStopped() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MHubMessage, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *MonitorServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "status" {
		return
	}

	// Send a fresh snapshot to just this client
	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- s.initialFrame():
	default:
	}
}

package server

import (
	"fmt"
	"strings"
	"sync"

	"watershed-sync/src/logger"
	"watershed-sync/src/models"
	"watershed-sync/src/provider"
	"watershed-sync/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// MonitorServer
// -----------------------------------------------------------------------------

const runHistoryLimit = 50

type MonitorServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Catalog *provider.Catalog
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MHubMessage // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Local run state
	events      *utils.EventBuffer
	runHistory  []models.MRunSummary
	lastSummary *models.MRunSummary
	currentRun  string
	running     bool
	stopped     bool
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewMonitorServer(cfg *models.MConfig, log *logger.Logger, catalog *provider.Catalog) *MonitorServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &MonitorServer{
		Config:  cfg,
		Logger:  log,
		Catalog: catalog,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking
		// Queue size of 256 ensures we can handle bursts of events
		broadcast:  make(chan *models.MHubMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		events:     utils.NewEventBuffer(512),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *MonitorServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/status", s.getStatus)
	s.engine.GET("/api/runs", s.getRuns)
	s.engine.GET("/api/products", s.getProducts)
	s.engine.GET("/api/watersheds", s.getWatersheds)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *MonitorServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting monitor server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop shuts the hub loop down and turns later publishes into no-ops. The
// hub channels stay open so a publisher racing the shutdown never hits a
// closed channel.
func (s *MonitorServer) Stop() error {
	s.stateMutex.Lock()
	if s.stopped {
		s.stateMutex.Unlock()
		return nil
	}
	s.stopped = true
	s.stateMutex.Unlock()

	close(s.done)
	return nil
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) isStopped() bool {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.stopped
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *MonitorServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	running := s.running
	lastRun := ""
	if s.lastSummary != nil {
		lastRun = s.lastSummary.RunID
	}
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":      "ok",
		"connections": connections,
		"running":     running,
		"last_run":    lastRun,
	})
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) getStatus(c *gin.Context) {
	c.JSON(200, s.statusSnapshot())
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) getRuns(c *gin.Context) {
	s.stateMutex.RLock()
	runs := make([]models.MRunSummary, len(s.runHistory))
	copy(runs, s.runHistory)
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{"runs": runs})
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) getProducts(c *gin.Context) {
	products, err := s.Catalog.Products()
	if err != nil {
		c.JSON(502, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"products": products})
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) getWatersheds(c *gin.Context) {
	watersheds, err := s.Catalog.Watersheds()
	if err != nil {
		c.JSON(502, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"watersheds": watersheds})
}

// -----------------------------------------------------------------------------

func (s *MonitorServer) statusSnapshot() models.MStatusSnapshot {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	return models.MStatusSnapshot{
		Running:     s.running,
		CurrentRun:  s.currentRun,
		Events:      s.events.GetLatest(100),
		LastSummary: s.lastSummary,
	}
}

// Package server exposes the prediction service over HTTP. It provides REST
// endpoints for single and bulk predictions, dataset uploads with paged
// review, and history access, plus a WebSocket feed that streams history
// events to connected clients as predictions land.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/cfg"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/history"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/metrics"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/predict"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/uploads"
)

// historyEvent is one message on the live history feed.
type historyEvent struct {
	Workflow   history.Workflow    `json:"workflow"`
	Prediction *predict.Prediction `json:"prediction,omitempty"`
	Rows       int                 `json:"rows"`
	At         time.Time           `json:"at"`
}

// Server wires the prediction engine, model registry, dataset handling, and
// history store behind an HTTP API.
type Server struct {
	settings cfg.Settings
	registry *model.Registry
	engine   *predict.Engine
	history  *history.Store
	uploads  *uploads.Cache
	metrics  *metrics.Metrics

	httpSrv          *http.Server
	router           *mux.Router
	upgrader         websocket.Upgrader
	clients          map[*websocket.Conn]bool
	clientsMu        sync.RWMutex
	broadcastChannel chan historyEvent
	stopChannel      chan struct{}
	isRunning        bool
	mu               sync.Mutex
}

// New creates a server. Start must be called to begin serving.
func New(settings cfg.Settings, registry *model.Registry, engine *predict.Engine, hist *history.Store, cache *uploads.Cache, m *metrics.Metrics) *Server {
	s := &Server{
		settings:         settings,
		registry:         registry,
		engine:           engine,
		history:          hist,
		uploads:          cache,
		metrics:          m,
		upgrader:         websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:          make(map[*websocket.Conn]bool),
		broadcastChannel: make(chan historyEvent, 100),
		stopChannel:      make(chan struct{}),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/predict", s.handlePredict).Methods("POST")
	api.HandleFunc("/predict/bulk", s.handleBulkPredict).Methods("POST")
	api.HandleFunc("/datasets", s.handleUpload).Methods("POST")
	api.HandleFunc("/datasets", s.handleListDatasets).Methods("GET")
	api.HandleFunc("/datasets/{id}", s.handleDeleteDataset).Methods("DELETE")
	api.HandleFunc("/datasets/{id}/pages/{page}", s.handleDatasetPage).Methods("GET")
	api.HandleFunc("/history/{workflow}", s.handleHistory).Methods("GET")
	r.HandleFunc("/ws/history", s.handleWebSocket).Methods("GET")
	s.router = r

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", settings.ServerPort),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler returns the routing handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving requests and broadcasting history events.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	go s.clientBroadcaster()

	go func() {
		log.Info().Str("address", s.httpSrv.Addr).Msg("starting prediction server")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("prediction server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop shuts the server down, closing all feed clients.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	close(s.stopChannel)

	s.clientsMu.Lock()
	for client := range s.clients {
		client.Close()
	}
	s.clients = make(map[*websocket.Conn]bool)
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown prediction server")
		return err
	}

	s.isRunning = false
	log.Info().Msg("prediction server stopped")
	return nil
}

// clientBroadcaster fans history events out to all connected feed clients.
func (s *Server) clientBroadcaster() {
	for {
		select {
		case ev := <-s.broadcastChannel:
			s.broadcastToClients(ev)
		case <-s.stopChannel:
			return
		}
	}
}

func (s *Server) broadcastToClients(ev historyEvent) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal history event")
		return
	}

	for client := range s.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			client.Close()
			delete(s.clients, client)
			s.metrics.WSClients.Dec()
		}
	}
}

// publish queues a history event without blocking request handling.
func (s *Server) publish(ev historyEvent) {
	select {
	case s.broadcastChannel <- ev:
	default:
		// Channel full, drop this update.
	}
}

// handleWebSocket registers a client on the live history feed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade history feed connection")
		return
	}
	defer conn.Close()

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()
	s.metrics.WSClients.Inc()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		s.metrics.WSClients.Dec()
	}
	s.clientsMu.Unlock()
}

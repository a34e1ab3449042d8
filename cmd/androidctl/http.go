package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/events"
	"github.com/kandev/androidctl/internal/sessionmanager/wsbridge"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// registerRoutes wires the liveness probe, a device listing for the
// external CLI/UI, task creation, and a WebSocket upgrade endpoint that
// streams one session's events via wsbridge.
func registerRoutes(mux *http.ServeMux, d *deps, log *logger.Logger) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "androidctl",
			"clients": d.wsHub.GetClientCount(),
		})
	})

	mux.HandleFunc("/v1/apps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.appRegistry.ListSupported())
	})

	mux.HandleFunc("/v1/devices", func(w http.ResponseWriter, r *http.Request) {
		devices, err := d.connMgr.ListDevices(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, devices)
	})

	mux.HandleFunc("/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sessionID := d.sessionMgr.CreateSession()
		writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sessionID})
	})

	mux.HandleFunc("/v1/sessions/tasks", func(w http.ResponseWriter, r *http.Request) {
		handleStartTask(w, r, d, log)
	})

	mux.HandleFunc("/v1/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWSUpgrade(w, r, d, log)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type startTaskRequest struct {
	SessionID   string        `json:"sessionId"`
	Description string        `json:"description"`
	MaxSteps    int           `json:"maxSteps"`
	DeviceID    string        `json:"deviceId"`
	Language    v1.Language   `json:"language"`
	Verbose     bool          `json:"verbose"`
	Recording   bool          `json:"recording"`
}

// mergeAgentConfig layers a request's overrides onto base, the composition
// root's default AgentConfig. MaxSteps/DeviceID/Language are only
// overridden when the request sets them; Verbose/Recording have no
// meaningful "unset" zero value distinct from false, so they always take
// the request's value.
func mergeAgentConfig(base v1.AgentConfig, req startTaskRequest) v1.AgentConfig {
	cfg := base
	if req.MaxSteps > 0 {
		cfg.MaxSteps = req.MaxSteps
	}
	if req.DeviceID != "" {
		cfg.DeviceID = req.DeviceID
	}
	if req.Language != "" {
		cfg.Language = req.Language
	}
	cfg.Verbose = req.Verbose
	cfg.Recording = req.Recording
	return cfg
}

func handleStartTask(w http.ResponseWriter, r *http.Request, d *deps, log *logger.Logger) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req startTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cfg := mergeAgentConfig(d.agentDefault, req)

	taskID, err := d.sessionMgr.Start(r.Context(), req.SessionID, req.Description, cfg)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	if d.eventBus != nil {
		if ch, unsubscribe, err := d.sessionMgr.Subscribe(req.SessionID); err == nil {
			go func() {
				defer unsubscribe()
				events.BridgeSession(r.Context(), d.eventBus.Bus, req.SessionID, ch)
			}()
		} else {
			log.Warn("event bus bridge subscribe failed", zap.String("sessionId", req.SessionID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

// handleWSUpgrade streams the given session's events to a WebSocket client.
// The session must exist; events of tasks started on it after the upgrade
// are streamed as well.
func handleWSUpgrade(w http.ResponseWriter, r *http.Request, d *deps, log *logger.Logger) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "sessionId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wsbridge.Serve(d.wsHub, d.sessionMgr, sessionID, conn, log)
}

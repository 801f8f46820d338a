package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"math"
	"net/http"
	"sync"
	"time"
)

// RunCooldown is the minimum delay between two accepted POST /run requests.
const RunCooldown = 5 * time.Second

// maxBodyBytes caps the POST /run request body.
const maxBodyBytes = 1 << 20

// Overrides holds projection parameters that can override config defaults.
// Zero means "use the config value"; use a rotation of 1 for a full turn.
type Overrides struct {
	ZoomFactor     float64 `json:"zoom_factor"`
	RotationOffset float64 `json:"rotation_offset"`
	Sharpness      float64 `json:"sharpness"`
}

// ValidateOverrides checks that non-zero overrides are finite and in range:
// zoom_factor in (0, 10], rotation_offset in [-1, 1], sharpness in (0, 10].
func ValidateOverrides(o Overrides) error {
	checks := []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"zoom_factor", o.ZoomFactor, 0, 10},
		{"rotation_offset", o.RotationOffset, -1, 1},
		{"sharpness", o.Sharpness, 0, 10},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%s must be finite, got %g", c.name, c.v)
		}
		if c.v == 0 {
			continue
		}
		if c.v < c.min || c.v > c.max {
			return fmt.Errorf("%s must be between %g and %g, got %g", c.name, c.min, c.max, c.v)
		}
	}
	return nil
}

// RunFunc renders the input directory with the given overrides.
// It is called from the POST /run handler in a goroutine.
type RunFunc func(ctx context.Context, overrides Overrides) error

// FormConfig holds default values for the render form (from config).
type FormConfig struct {
	ZoomFactor     float64 `json:"zoom_factor"`
	RotationOffset float64 `json:"rotation_offset"`
	Sharpness      float64 `json:"sharpness"`
	InputDir       string  `json:"input_directory"`
	OutputDir      string  `json:"output_directory"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Run          RunFunc
	FormDefaults FormConfig
	runningMu    sync.Mutex
	running      bool
	lastRun      time.Time
	baseCtx      context.Context
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If run is nil, POST /run will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, run RunFunc, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Run:          run,
		FormDefaults: formDefaults,
		baseCtx:      context.Background(),
		staticFS:     staticFS,
	}
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleRun handles POST /run to start a batch render.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var overrides Overrides
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateOverrides(overrides); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.Run == nil {
		http.Error(w, "renderer not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "render already in progress", http.StatusConflict)
		return
	}
	if !h.lastRun.IsZero() && time.Since(h.lastRun) < RunCooldown {
		h.runningMu.Unlock()
		http.Error(w, "too many requests, retry shortly", http.StatusTooManyRequests)
		return
	}
	h.running = true
	h.lastRun = time.Now()
	ctx := h.baseCtx
	h.runningMu.Unlock()

	// Run in goroutine; clear running when done
	go func() {
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		if err := h.Run(ctx, overrides); err != nil {
			h.Broadcaster.Broadcast("error", "Render failed: "+err.Error())
			log.Printf("render failed: %v", err)
		} else {
			h.Broadcaster.Broadcast("info", "Render complete")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

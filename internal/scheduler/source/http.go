package source

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lange-studios/gobvh/pkg/utils"
)

// TypeHTTP is the source type constant for HTTP webhook sources.
const TypeHTTP Type = "http"

func init() {
	Register(TypeHTTP, NewHTTPSource)
}

// HTTPOptions configures the HTTP submission endpoint.
type HTTPOptions struct {
	ListenAddr   string
	Path         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
}

// DefaultHTTPOptions returns reasonable listener defaults.
func DefaultHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		ListenAddr:   ":8090",
		Path:         "/build-requests",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxBodySize:  1 << 20,
	}
}

// HTTPBuildRequest is the JSON body POSTed to submit a BuildRequest.
type HTTPBuildRequest struct {
	ScenePath   string            `json:"scene_path"`
	SceneFormat string            `json:"scene_format"`
	Priority    int               `json:"priority,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// HTTPResponse is the JSON response to a submission or health check.
type HTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HTTPSource implements Source over an HTTP POST endpoint.
type HTTPSource struct {
	name    string
	options *HTTPOptions
	logger  utils.Logger

	server  *http.Server
	reqChan chan *Event
	stopCh  chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewHTTPSource creates an HTTPSource from cfg.
func NewHTTPSource(cfg *Config) (Source, error) {
	opts := &HTTPOptions{
		ListenAddr:   cfg.GetString("listen_addr", ":8090"),
		Path:         cfg.GetString("path", "/build-requests"),
		ReadTimeout:  cfg.GetDuration("read_timeout", 30*time.Second),
		WriteTimeout: cfg.GetDuration("write_timeout", 30*time.Second),
		MaxBodySize:  int64(cfg.GetInt("max_body_size", 1<<20)),
	}
	return &HTTPSource{
		name:    cfg.Name,
		options: opts,
		logger:  utils.NewDefaultLogger(utils.LevelInfo, nil),
		reqChan: make(chan *Event, 100),
		stopCh:  make(chan struct{}),
	}, nil
}

// NewHTTPSourceWithOptions creates an HTTPSource with explicit options,
// useful when wiring it up outside of the Config-driven factory path.
func NewHTTPSourceWithOptions(name string, opts *HTTPOptions, logger utils.Logger) *HTTPSource {
	if opts == nil {
		opts = DefaultHTTPOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &HTTPSource{
		name:    name,
		options: opts,
		logger:  logger,
		reqChan: make(chan *Event, 100),
		stopCh:  make(chan struct{}),
	}
}

func (s *HTTPSource) Type() Type   { return TypeHTTP }
func (s *HTTPSource) Name() string { return s.name }

// Start starts the HTTP listener.
func (s *HTTPSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(s.options.Path, s.handleSubmit)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         s.options.ListenAddr,
		Handler:      mux,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
	}

	s.logger.Info("http source %s listening on %s%s", s.name, s.options.ListenAddr, s.options.Path)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http source %s server error: %v", s.name, err)
		}
	}()
	return nil
}

// Stop shuts the HTTP listener down.
func (s *HTTPSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Requests returns the submitted-request channel.
func (s *HTTPSource) Requests() <-chan *Event {
	return s.reqChan
}

// Ack is a no-op: the HTTP response was already sent synchronously at
// submission time.
func (s *HTTPSource) Ack(ctx context.Context, event *Event) error {
	s.logger.Debug("http source %s acked %s", s.name, event.Request.ScenePath)
	return nil
}

// Nack logs the rejection; there is no caller connection left to notify.
func (s *HTTPSource) Nack(ctx context.Context, event *Event, reason string) error {
	s.logger.Warn("http source %s nacked %s: %s", s.name, event.Request.ScenePath, reason)
	return nil
}

// HealthCheck reports whether the listener is running.
func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return errNotRunning(s.name)
	}
	return nil
}

func (s *HTTPSource) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "only POST is allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req HTTPBuildRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ScenePath == "" {
		s.sendError(w, http.StatusBadRequest, "scene_path is required")
		return
	}

	br := BuildRequest{ScenePath: req.ScenePath, SceneFormat: req.SceneFormat, Priority: req.Priority}
	event := NewEvent(br, TypeHTTP, s.name)
	for k, v := range req.Metadata {
		event.WithMetadata(k, v)
	}

	select {
	case s.reqChan <- event:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(HTTPResponse{Success: true, Message: "build request accepted"})
	default:
		s.sendError(w, http.StatusServiceUnavailable, "build request queue is full")
	}
}

func (s *HTTPSource) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "healthy", "source": s.name})
}

func (s *HTTPSource) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPResponse{Success: false, Message: message})
}

package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/history"
	"github.com/ritzau/taxflow/pkg/logging"
	"github.com/ritzau/taxflow/pkg/metrics"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/pubsub"
	"github.com/ritzau/taxflow/pkg/qc"
	"github.com/ritzau/taxflow/pkg/refresh"
	"github.com/ritzau/taxflow/pkg/taxonomy"
)

//go:embed static/*
var staticFiles embed.FS

// keepAlive is the interval of SSE comment lines on an idle stream.
const keepAlive = 30 * time.Second

// Server represents the web server
type Server struct {
	router    *mux.Router
	runner    *refresh.Runner
	publisher *pubsub.SSEPublisher
	metrics   *metrics.Registry
	defaults  Defaults
}

// NewServer creates a web server reading snapshots from runner. The
// publisher must be the one the runner publishes to. reg may be nil.
func NewServer(runner *refresh.Runner, publisher *pubsub.SSEPublisher, reg *metrics.Registry, defaults Defaults) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		runner:    runner,
		publisher: publisher,
		metrics:   reg,
		defaults:  defaults,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/refresh", s.handleSubscribeRefresh).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")
	api.HandleFunc("/sankey", s.handleSankey).Methods("GET")
	api.HandleFunc("/sunburst", s.handleSunburst).Methods("GET")
	api.HandleFunc("/toplist", s.handleTopList).Methods("GET")
	api.HandleFunc("/interest", s.handleInterest).Methods("GET")
	api.HandleFunc("/qc", s.handleQC).Methods("GET")
	api.HandleFunc("/history/interest", s.handleInterestHistory).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("embedded static files missing", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// Streams only end when their subscription closes.
		s.publisher.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("response not written", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": logging.GetRequestID(r.Context()),
	})
}

// report returns the current report, nil while waiting.
func (s *Server) report() *taxonomy.Report {
	if snap := s.runner.Snapshot(); snap != nil {
		return snap.Report
	}
	return nil
}

func (s *Server) handleSubscribeRefresh(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicRefresh)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	if s.metrics != nil {
		s.metrics.SSESubscribers.Inc()
		defer s.metrics.SSESubscribers.Dec()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the stream (Safari).
	pubsub.WriteComment(w, "connected")
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "sse client gone", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if err := pubsub.WriteComment(w, "keep-alive"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type statusResponse struct {
	pubsub.RefreshStatus
	Version        int                      `json:"version"`
	Classification taxonomy.Classification  `json:"classification"`
	Gauge          projections.GaugeReading `json:"gauge"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{RefreshStatus: s.runner.Status()}
	if snap := s.runner.Snapshot(); snap != nil {
		resp.Version = snap.Version
		resp.Classification = snap.Classification
		resp.Gauge = snap.Gauge
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Refresh(r.Context(), refresh.ReasonManual); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.runner.Status())
}

// sankeyResponse adds the parallel link arrays plotting libraries take.
type sankeyResponse struct {
	*hierarchy.Sankey
	Source []int   `json:"source"`
	Target []int   `json:"target"`
	Value  []int64 `json:"value"`
}

func (s *Server) handleSankey(w http.ResponseWriter, r *http.Request) {
	opts, err := s.defaults.SankeyOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}

	sankey := hierarchy.BuildSankey(s.report(), opts)
	resp := sankeyResponse{Sankey: sankey}
	resp.Source, resp.Target, resp.Value = sankey.Links()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSunburst(w http.ResponseWriter, r *http.Request) {
	opts, err := s.defaults.SunburstOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hierarchy.BuildSunburst(s.report(), opts))
}

func (s *Server) handleTopList(w http.ResponseWriter, r *http.Request) {
	opts, err := s.defaults.TopListOptions(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var rows []taxonomy.Row
	if rep := s.report(); rep != nil {
		rows = rep.Rows
	}
	entries := projections.TopList(rows, opts)
	if entries == nil {
		entries = []projections.TopEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type interestResponse struct {
	Species []projections.InterestRow `json:"species"`
	Gauge   projections.GaugeReading  `json:"gauge"`
}

func (s *Server) handleInterest(w http.ResponseWriter, r *http.Request) {
	resp := interestResponse{Species: []projections.InterestRow{}}
	if snap := s.runner.Snapshot(); snap != nil {
		resp.Gauge = snap.Gauge
		resp.Species = make([]projections.InterestRow, len(snap.Interest))
		copy(resp.Species, snap.Interest)
	}
	if !flag(r.URL.Query(), "validate") {
		for i := range resp.Species {
			resp.Species[i].Validated = nil
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type qcResponse struct {
	Timeline       []qc.TimelineRow        `json:"timeline"`
	Fastp          *qc.Fastp               `json:"fastp"`
	Filter         qc.FilterSummary        `json:"filter"`
	Classification taxonomy.Classification `json:"classification"`
}

func (s *Server) handleQC(w http.ResponseWriter, r *http.Request) {
	snap := s.runner.Snapshot()
	if snap == nil {
		writeJSON(w, http.StatusOK, qcResponse{Timeline: []qc.TimelineRow{}})
		return
	}
	writeJSON(w, http.StatusOK, qcResponse{
		Timeline:       snap.Timeline,
		Fastp:          snap.Fastp,
		Filter:         snap.Filter,
		Classification: snap.Classification,
	})
}

func (s *Server) handleInterestHistory(w http.ResponseWriter, r *http.Request) {
	store := s.runner.History()
	if store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history disabled"})
		return
	}

	q := r.URL.Query()
	taxid := q.Get("taxid")
	if taxid == "" {
		writeError(w, r, badRequest("taxid is required"))
		return
	}
	limit, err := positiveInt(q, "limit", 500)
	if err != nil {
		writeError(w, r, err)
		return
	}

	points, err := store.InterestSeries(r.Context(), taxid, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if points == nil {
		points = []history.Point{}
	}
	writeJSON(w, http.StatusOK, points)
}

// metricsMiddleware records request counts and latency per route template.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		rec := logging.NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.Status()), time.Since(start))
	})
}

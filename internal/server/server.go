// Package server exposes the dashboard API: dataset metadata, filter options,
// metrics, rendered charts and table export over plain HTTP. Every request
// recomputes its answer from the cached, immutable table; the only shared
// mutable state is the snapshot of derived bindings, rebuilt when the source
// file changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"

	"github.com/aerodeck/flightdeck-cli/internal/analysis"
	"github.com/aerodeck/flightdeck-cli/internal/dataset"
	"github.com/aerodeck/flightdeck-cli/internal/render"
	"github.com/aerodeck/flightdeck-cli/internal/schema"
)

// Config holds the server configuration. Aliases optionally replaces the
// built-in alias list per role before columns are resolved.
type Config struct {
	Addr     string
	DataPath string
	Load     dataset.LoadOptions
	Mode     schema.MatchMode
	Aliases  map[schema.Role][]string
	Metrics  analysis.Options
	Chart    render.Options
	Watch    bool
	Version  string
}

// Server serves the dashboard API for one dataset.
type Server struct {
	cfg      Config
	cache    *dataset.Cache
	resolver schema.Resolver
	http     *http.Server
	watcher  *dataset.Watcher

	mu   sync.RWMutex
	snap *snapshot

	startTime time.Time
}

// snapshot is the loaded table with its derived bindings: resolved schema,
// normalized frame and the load-time airline options. Immutable once built;
// a source change swaps in a fresh one.
type snapshot struct {
	ds       *dataset.Dataset
	schema   schema.Map
	frame    dataframe.DataFrame
	airlines []string
}

// New creates a server for cfg. The dataset is loaded lazily on the first
// request or eagerly by Run.
func New(cfg Config) *Server {
	s := &Server{
		cfg:       cfg,
		cache:     dataset.NewCache(),
		resolver:  schema.NewResolver(cfg.Mode).WithOverrides(cfg.Aliases),
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/dataset", s.handleDataset)
	mux.HandleFunc("/api/options", s.handleOptions)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/chart/", s.handleChart)
	mux.HandleFunc("/api/export", s.handleExport)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run loads the dataset, starts the HTTP server and blocks until ctx is
// cancelled, then shuts down gracefully. A failed initial load is fatal: the
// dashboard has nothing to serve without the table.
func (s *Server) Run(ctx context.Context) error {
	snap, err := s.currentSnapshot()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	log.Printf("dataset %s: %d rows, %d columns", snap.ds.Name, snap.ds.Rows(), len(snap.ds.Columns()))
	for _, role := range schema.Roles {
		if col, ok := snap.schema.Column(role); ok {
			log.Printf("schema: %s -> %s", role, col)
		} else {
			log.Printf("schema: %s unbound (dependent metrics unavailable)", role)
		}
	}

	if s.cfg.Watch {
		w, err := dataset.NewWatcher(s.cache, s.cfg.DataPath, func() {
			log.Printf("dataset %s changed on disk, reloading on next request", s.cfg.DataPath)
		})
		if err != nil {
			log.Printf("file watcher unavailable: %v", err)
		} else {
			s.watcher = w
			go func() {
				if err := w.Run(); err != nil {
					log.Printf("file watcher stopped: %v", err)
				}
			}()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("dashboard API listening on %s", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down...")
	return s.Shutdown()
}

// Shutdown stops the watcher and drains in-flight requests.
func (s *Server) Shutdown() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Println("stopped")
	return nil
}

// currentSnapshot returns the up-to-date snapshot, rebuilding the derived
// state when the cache hands back a different load of the source file.
func (s *Server) currentSnapshot() (*snapshot, error) {
	ds, err := s.cache.Get(s.cfg.DataPath, s.cfg.Load)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil && snap.ds.ID == ds.ID {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil && s.snap.ds.ID == ds.ID {
		return s.snap, nil
	}
	sm := s.resolver.Resolve(ds.Columns())
	next := &snapshot{
		ds:       ds,
		schema:   sm,
		frame:    analysis.Normalize(ds.Frame, sm),
		airlines: analysis.Airlines(ds.Frame, sm),
	}
	if s.snap != nil {
		log.Printf("dataset %s reloaded: %d rows", ds.Name, ds.Rows())
	}
	s.snap = next
	return next, nil
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("dataset unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, map[string]any{
		"status":  "ok",
		"dataset": snap.ds.Name,
		"rows":    snap.ds.Rows(),
		"uptime":  time.Since(s.startTime).String(),
		"version": s.cfg.Version,
	})
}

// datasetInfo is the /api/dataset payload.
type datasetInfo struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Format   string            `json:"format"`
	Rows     int               `json:"rows"`
	Columns  []string          `json:"columns"`
	LoadedAt time.Time         `json:"loaded_at"`
	Schema   map[string]string `json:"schema"`
	Unbound  []string          `json:"unbound,omitempty"`
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("dataset unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	bindings := make(map[string]string, len(snap.schema))
	for role, col := range snap.schema {
		bindings[string(role)] = col
	}
	var unbound []string
	for _, role := range snap.schema.Unbound() {
		unbound = append(unbound, string(role))
	}
	respondJSON(w, datasetInfo{
		ID:       snap.ds.ID,
		Name:     snap.ds.Name,
		Path:     snap.ds.Path,
		Format:   snap.ds.Format,
		Rows:     snap.ds.Rows(),
		Columns:  snap.ds.Columns(),
		LoadedAt: snap.ds.Loaded,
		Schema:   bindings,
		Unbound:  unbound,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("dataset unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	views := make([]string, 0, len(render.Views()))
	for _, v := range render.Views() {
		views = append(views, string(v))
	}
	respondJSON(w, map[string]any{
		"airlines": snap.airlines,
		"views":    views,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("dataset unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	frame := analysis.ApplyFilter(snap.frame, snap.schema, parseSelection(r))
	respondJSON(w, analysis.Compute(frame, snap.schema, s.cfg.Metrics))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/chart/")
	if name == "" {
		http.Error(w, "view name required", http.StatusBadRequest)
		return
	}
	view, err := render.ParseView(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	snap, err := s.currentSnapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("dataset unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	frame := analysis.ApplyFilter(snap.frame, snap.schema, parseSelection(r))
	res := analysis.Compute(frame, snap.schema, s.cfg.Metrics)

	png, err := render.Chart(res, view, s.chartOptions(r))
	if err != nil {
		if errors.Is(err, render.ErrNoData) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot()
	if err != nil {
		http.Error(w, fmt.Sprintf("dataset unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	frame := analysis.ApplyFilter(snap.frame, snap.schema, parseSelection(r))

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	base := strings.TrimSuffix(snap.ds.Name, filepath.Ext(snap.ds.Name)) + "_filtered"

	var data []byte
	var ctype string
	switch format {
	case "csv":
		data, err = dataset.CSVBytes(frame)
		ctype = "text/csv; charset=utf-8"
	case "xlsx":
		data, err = dataset.XLSXBytes(frame)
		ctype = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, fmt.Sprintf("unknown format %q (want csv or xlsx)", format), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"."+format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// ---------------------------------------------------------------------------
// Request plumbing
// ---------------------------------------------------------------------------

// parseSelection reads the airlines filter from the query string. An absent
// parameter means no restriction; a present-but-empty one selects nothing,
// mirroring a user unticking every airline.
func parseSelection(r *http.Request) []string {
	values, ok := r.URL.Query()["airlines"]
	if !ok {
		return nil
	}
	selection := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				selection = append(selection, p)
			}
		}
	}
	return selection
}

// chartOptions applies width/height query overrides within sane bounds.
func (s *Server) chartOptions(r *http.Request) render.Options {
	opt := s.cfg.Chart
	if opt.Width <= 0 || opt.Height <= 0 {
		opt = render.DefaultOptions()
	}
	q := r.URL.Query()
	if v := q.Get("width"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 64 && n <= 4096 {
			opt.Width = n
		}
	}
	if v := q.Get("height"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 64 && n <= 4096 {
			opt.Height = n
		}
	}
	return opt
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

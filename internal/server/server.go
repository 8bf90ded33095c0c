// Package server hosts the dashboard pages and their HTTP API: state
// snapshots, widget updates, fetch triggers, uploads, rendered frames,
// exports and the activity log.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/config"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/dashboard"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/fetchers"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
)

const (
	shutdownTimeout = 30 * time.Second
	uploadMaxAge    = 24 * time.Hour
)

// Server serves the dashboards over HTTP. Routes are registered per
// dashboard at construction; the set does not change at runtime.
type Server struct {
	cfg        *config.Config
	mux        *http.ServeMux
	dashboards []*dashboard.Controller
	byName     map[string]*dashboard.Controller
	bulletins  *fetchers.BulletinFetcher
	uploads    *UploadStore
	log        *logger.Logger
}

// NewServer wires the controllers into a routed server. bulletins may be nil
// to leave the index page without the bulletin feed.
func NewServer(cfg *config.Config, controllers []*dashboard.Controller, bulletins *fetchers.BulletinFetcher) (*Server, error) {
	uploads, err := NewUploadStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		dashboards: controllers,
		byName:     make(map[string]*dashboard.Controller, len(controllers)),
		bulletins:  bulletins,
		uploads:    uploads,
		log:        logger.Component("server"),
	}
	for _, ctrl := range controllers {
		s.byName[ctrl.Definition().Name] = ctrl
	}
	s.mux = s.routes()
	return s, nil
}

// routes registers the fixed routes and one route group per dashboard.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	for _, ctrl := range s.dashboards {
		name := ctrl.Definition().Name
		base := "/api/dashboards/" + name

		mux.HandleFunc("/dashboards/"+name, s.handleDashboardPage(ctrl))
		mux.HandleFunc(base+"/state", s.handleState(ctrl))
		mux.HandleFunc(base+"/widgets", s.handleWidgets(ctrl))
		mux.HandleFunc(base+"/fetch", s.handleFetch(ctrl))
		mux.HandleFunc(base+"/upload", s.handleUpload(ctrl))
		mux.HandleFunc(base+"/plot", s.handlePlot(ctrl))
		mux.HandleFunc(base+"/view", s.handleView(ctrl))
		mux.HandleFunc(base+"/player/toggle", s.handlePlayerToggle(ctrl))
		mux.HandleFunc(base+"/player/frame", s.handlePlayerFrame(ctrl))
		mux.HandleFunc(base+"/export", s.handleExport(ctrl))
		mux.HandleFunc(base+"/log", s.handleLog(ctrl))
	}

	// catch-all must come last
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// Handler exposes the routed mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepUploads(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Infof("listening on :%s", s.cfg.Port)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// sweepUploads periodically removes staged upload files past their lifetime.
func (s *Server) sweepUploads(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.uploads.Sweep(uploadMaxAge); n > 0 {
				s.log.Infof("removed %d stale upload(s)", n)
			}
		}
	}
}

// Close stops the dashboards' animation players.
func (s *Server) Close() {
	for _, ctrl := range s.dashboards {
		ctrl.Close()
	}
}

// Package server exposes scored process reports over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"emperror.dev/errors"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srodi/procscore/pkg/facts"
	"github.com/srodi/procscore/pkg/types"
)

// Scanner produces report snapshots.
type Scanner interface {
	Scan() (*types.Snapshot, error)
}

type Server struct {
	router    *mux.Router
	cfg       *Options
	scanner   Scanner
	facts     *facts.Provider
	snapshots *ttlcache.Cache[string, *types.Snapshot]
}

func New(scanner Scanner, provider *facts.Provider, opts ...Option) *Server {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	cacheOpts := []ttlcache.Option[string, *types.Snapshot]{
		ttlcache.WithTTL[string, *types.Snapshot](options.SnapshotTTL),
		ttlcache.WithDisableTouchOnHit[string, *types.Snapshot](),
	}
	if options.MaxSnapshots > 0 {
		cacheOpts = append(cacheOpts, ttlcache.WithCapacity[string, *types.Snapshot](options.MaxSnapshots))
	}

	s := &Server{
		router:    mux.NewRouter(),
		cfg:       options,
		scanner:   scanner,
		facts:     provider,
		snapshots: ttlcache.New(cacheOpts...),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.snapshots.Start()
	defer s.snapshots.Stop()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info().Str("listen", s.cfg.Listen).Msg("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapIfWithDetails(err, "serving http", "listen", s.cfg.Listen)
	case <-ctx.Done():
	}

	s.cfg.Logger.Info().Msg("stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/report", s.report).Methods(http.MethodGet)
	s.router.HandleFunc("/report/{id}", s.reportPage).Methods(http.MethodGet)
	s.router.HandleFunc("/facts", s.readFacts).Methods(http.MethodGet)
	s.router.HandleFunc("/facts/mask", s.writeFactsMask).Methods(http.MethodPut)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

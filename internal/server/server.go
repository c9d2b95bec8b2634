// Package server wires the courtflow HTTP surface: it owns the database
// handle, the occupancy manager, the identity resolvers, and the router.
// Handlers are thin callers: input validation, identity resolution, one
// manager or store operation, and an error-kind-to-status mapping.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/cutrackit/courtflow/pkg/config"
	"github.com/cutrackit/courtflow/pkg/database/migrate"
	"github.com/cutrackit/courtflow/pkg/health"
	cfhttp "github.com/cutrackit/courtflow/pkg/http"
	"github.com/cutrackit/courtflow/pkg/identity"
	"github.com/cutrackit/courtflow/pkg/occupancy"
	occupancypg "github.com/cutrackit/courtflow/pkg/occupancy/postgres"
	"github.com/cutrackit/courtflow/pkg/profile"
	profilepg "github.com/cutrackit/courtflow/pkg/profile/postgres"
	"github.com/cutrackit/courtflow/pkg/team"
	teampg "github.com/cutrackit/courtflow/pkg/team/postgres"
)

// Version is set at build time.
var Version = "dev"

// Deps carries the collaborators the handlers depend on. Tests substitute
// in-memory implementations.
type Deps struct {
	Manager  occupancy.Manager
	Profiles profile.Store
	Teams    team.Store
	Resolver identity.Resolver

	// Subjects validates a credential and returns its identity-provider
	// subject, used by profile sync before a profile exists. Nil disables
	// the sync endpoint.
	Subjects SubjectResolver

	Checker *health.Checker
	Logger  *slog.Logger
}

// SubjectResolver extracts a verified identity-provider subject from a
// credential.
type SubjectResolver interface {
	Subject(ctx context.Context, credential string) (string, error)
}

// Server is the courtflow HTTP server.
type Server struct {
	cfg     *config.Config
	deps    Deps
	db      *sql.DB
	sweeper *occupancypg.Manager
	httpSrv *http.Server
}

// New opens the database, runs migrations, and wires the full server.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := migrate.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	manager := occupancypg.New(db, occupancypg.Config{
		SessionTimeout: cfg.Occupancy.SessionTimeout,
	})
	profiles := profilepg.New(db)
	teams := teampg.New(db)

	resolver, subjects, err := buildResolvers(cfg, profiles)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	checker := health.NewChecker()
	checker.SetPing(db.Ping)

	deps := Deps{
		Manager:  manager,
		Profiles: profiles,
		Teams:    teams,
		Resolver: resolver,
		Subjects: subjects,
		Checker:  checker,
		Logger:   logger,
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		db:      db,
		sweeper: manager,
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           Routes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// buildResolvers assembles the identity resolver chain from configuration.
func buildResolvers(cfg *config.Config, profiles profile.Store) (identity.Resolver, SubjectResolver, error) {
	var resolvers []identity.Resolver
	var subjects SubjectResolver

	if cfg.Auth.JWT.Secret != "" {
		jwtResolver, err := identity.NewJWTResolver(identity.JWTConfig{
			SigningKey: []byte(cfg.Auth.JWT.Secret),
			Issuer:     cfg.Auth.JWT.Issuer,
		}, profiles)
		if err != nil {
			return nil, nil, fmt.Errorf("building jwt resolver: %w", err)
		}
		resolvers = append(resolvers, jwtResolver)
		subjects = jwtResolver
	}
	if cfg.Auth.QR.Enabled {
		resolvers = append(resolvers, identity.NewQRResolver(profiles))
	}
	if len(resolvers) == 0 {
		return nil, nil, fmt.Errorf("no identity resolver configured: set auth.jwt.secret or enable auth.qr")
	}
	return identity.NewChainResolver(resolvers...), subjects, nil
}

// Routes builds the courtflow router over the given dependencies.
func Routes(deps Deps) http.Handler {
	h := &handlers{deps: deps}

	r := mux.NewRouter()
	r.HandleFunc("/checkin", h.checkIn).Methods(http.MethodPost)
	r.HandleFunc("/checkout", h.checkOut).Methods(http.MethodPost)
	r.HandleFunc("/court/{court_id:[0-9]+}", h.courtStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/courts", h.listCourts).Methods(http.MethodGet)
	r.HandleFunc("/api/my_profile_id", h.myProfileID).Methods(http.MethodGet)
	r.HandleFunc("/sync_profile", h.syncProfile).Methods(http.MethodPost)
	r.HandleFunc("/api/create_team", h.createTeam).Methods(http.MethodPost)
	r.HandleFunc("/api/join_team", h.joinTeam).Methods(http.MethodPost)

	if deps.Checker != nil {
		r.HandleFunc("/healthz", deps.Checker.LivenessHandler()).Methods(http.MethodGet)
		r.HandleFunc("/readyz", deps.Checker.ReadinessHandler()).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	handler = cfhttp.CredentialMiddleware(handler)
	if deps.Logger != nil {
		handler = cfhttp.RequestLogMiddleware(deps.Logger)(handler)
	}
	return handler
}

// Start begins serving and the background expiry sweep, then blocks until
// the listener fails or Shutdown is called.
func (s *Server) Start() error {
	if s.cfg.Occupancy.SweepInterval > 0 {
		s.sweeper.StartSweepRoutine(s.cfg.Occupancy.SweepInterval)
	}
	s.deps.Checker.SetReady()

	s.deps.Logger.Info("courtflow listening",
		"address", s.cfg.Server.Address, "version", Version)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests, stops the sweep routine, and closes
// the database handle.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Checker.SetDraining()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := s.sweeper.Close(); err != nil {
		return fmt.Errorf("stopping sweep routine: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

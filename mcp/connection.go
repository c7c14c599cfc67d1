package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// connStrategy hands out leased connections for one configured profile.
// A pooled strategy shares a database/sql pool; a direct strategy opens
// a dedicated connection per acquisition.
type connStrategy interface {
	acquire(ctx context.Context) (*sql.Conn, func() error, error)
	stats() sql.DBStats
	close() error
}

type pooledStrategy struct {
	db *sql.DB
}

func (s *pooledStrategy) acquire(ctx context.Context) (*sql.Conn, func() error, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Close, nil
}

func (s *pooledStrategy) stats() sql.DBStats { return s.db.Stats() }
func (s *pooledStrategy) close() error       { return s.db.Close() }

// directStrategy never pools: every acquisition opens one dedicated
// connection and closes it at scope exit. Used for SYSDBA profiles.
type directStrategy struct {
	driver string
	dsn    string
}

func (s *directStrategy) acquire(ctx context.Context) (*sql.Conn, func() error, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	release := func() error {
		err := conn.Close()
		if cerr := db.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return conn, release, nil
}

func (s *directStrategy) stats() sql.DBStats { return sql.DBStats{} }
func (s *directStrategy) close() error       { return nil }

// Registry owns one strategy per logical database name, created lazily
// on first use. Creation is guarded per name, so first callers for
// different databases never block each other and concurrent first
// callers for the same name create exactly one strategy.
type Registry struct {
	cfg    *Config
	logger *zap.Logger

	mu         sync.Mutex
	strategies map[string]connStrategy
	locks      map[string]*sync.Mutex

	clientOnce sync.Once

	// newStrategy is swappable so tests can back the registry with a
	// local engine.
	newStrategy func(p *DatabaseProfile, g GlobalSettings) (connStrategy, error)
}

func NewRegistry(cfg *Config, logger *zap.Logger) *Registry {
	r := &Registry{
		cfg:        cfg,
		logger:     logger,
		strategies: make(map[string]connStrategy),
		locks:      make(map[string]*sync.Mutex),
	}
	r.newStrategy = r.godrorStrategy
	return r
}

// initClient runs the one-time global client setup. Failures here are
// retryable conditions, not fatal: they are logged and the connection
// attempt proceeds (the driver falls back to thin mode or its own
// library discovery).
func (r *Registry) initClient() {
	r.clientOnce.Do(func() {
		libDir := r.cfg.Global.ClientLibDir
		if libDir == "" {
			return
		}
		if _, err := os.Stat(libDir); err != nil {
			r.logger.Warn("Oracle client init warning",
				zap.String("lib_dir", libDir), zap.Error(err))
			return
		}
		r.logger.Info("Oracle client library configured", zap.String("lib_dir", libDir))
	})
}

// godrorDSN renders the profile as a godror parameter string. Pool
// sizing travels in the DSN for shared profiles; SYSDBA profiles get a
// standalone connection instead.
func godrorDSN(p *DatabaseProfile, g GlobalSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "user=%q password=%q connectString=%q",
		p.User, p.Password, p.ConnectString())
	if p.Privileged() {
		b.WriteString(" sysdba=1 standaloneConnection=1")
	} else {
		fmt.Fprintf(&b, " poolMinSessions=%d poolMaxSessions=%d poolIncrement=%d",
			g.PoolMin, g.PoolMax, g.PoolIncrement)
	}
	if p.Charset != "" {
		fmt.Fprintf(&b, " charset=%q", p.Charset)
	}
	if g.ClientLibDir != "" {
		fmt.Fprintf(&b, " libDir=%q", g.ClientLibDir)
	}
	return b.String()
}

func (r *Registry) godrorStrategy(p *DatabaseProfile, g GlobalSettings) (connStrategy, error) {
	dsn := godrorDSN(p, g)

	if p.Privileged() {
		return &directStrategy{driver: "godror", dsn: dsn}, nil
	}

	db, err := sql.Open("godror", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(g.PoolMax)
	db.SetMaxIdleConns(g.PoolMin)

	pingCtx, cancel := context.WithTimeout(context.Background(), DBPingTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return &pooledStrategy{db: db}, nil
}

// strategyFor returns the strategy for a resolved logical name,
// creating it on first use. A failed creation is not cached; the next
// call attempts creation again.
func (r *Registry) strategyFor(name string) (connStrategy, error) {
	r.mu.Lock()
	if s, ok := r.strategies[name]; ok {
		r.mu.Unlock()
		return s, nil
	}
	lock, ok := r.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[name] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	if s, ok := r.strategies[name]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	r.initClient()

	profile, ok := r.cfg.Profile(name)
	if !ok {
		return nil, &ConfigurationError{Name: name, Known: r.cfg.Names()}
	}

	s, err := r.newStrategy(profile, r.cfg.Global)
	if err != nil {
		r.logger.Error("failed to create pool",
			zap.String("database", name), zap.Error(err))
		return nil, err
	}

	r.mu.Lock()
	r.strategies[name] = s
	r.mu.Unlock()

	r.logger.Info("connection pool created", zap.String("database", name))
	return s, nil
}

// Active reports whether a pool or strategy already exists for the
// logical name.
func (r *Registry) Active(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.strategies[name]
	return ok
}

// Stats returns pool statistics for an active logical name.
func (r *Registry) Stats(name string) (sql.DBStats, bool) {
	r.mu.Lock()
	s, ok := r.strategies[name]
	r.mu.Unlock()
	if !ok {
		return sql.DBStats{}, false
	}
	return s.stats(), true
}

// WithConnection resolves the logical database name, acquires a
// connection via the profile's strategy, runs fn, and releases the
// connection on every exit path. The connection is exclusively owned by
// fn for the duration of the call and must not be retained.
func (r *Registry) WithConnection(ctx context.Context, dbName string, fn func(ctx context.Context, conn *sql.Conn) error) error {
	name, err := r.cfg.Resolve(dbName)
	if err != nil {
		return err
	}

	strategy, err := r.strategyFor(name)
	if err != nil {
		if _, ok := err.(*ConfigurationError); ok {
			return err
		}
		return &ConnectionError{Database: name, Err: err}
	}

	conn, release, err := strategy.acquire(ctx)
	if err != nil {
		return &ConnectionError{Database: name, Err: err}
	}
	defer func() {
		if rerr := release(); rerr != nil {
			r.logger.Warn("connection release failed",
				zap.String("database", name), zap.Error(rerr))
		}
	}()

	return fn(ctx, conn)
}

// Close shuts down all cached strategies. Call at process exit.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for name, s := range r.strategies {
		if err := s.close(); err != nil && first == nil {
			first = err
		}
		delete(r.strategies, name)
	}
	return first
}

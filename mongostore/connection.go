package mongostore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

const (
	maxConnectAttempts = 20
	connectSleep       = time.Second
)

// ConnectionManager holds one client per configured database alias. All of
// the schema layer's I/O flows through databases resolved here.
type ConnectionManager struct {
	mu        sync.RWMutex
	clients   map[string]*mongo.Client
	databases map[string]*mongo.Database
	log       *zap.Logger
}

// NewConnectionManager builds an empty manager. A nil logger disables
// logging.
func NewConnectionManager(log *zap.Logger) *ConnectionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConnectionManager{
		clients:   map[string]*mongo.Client{},
		databases: map[string]*mongo.Database{},
		log:       log,
	}
}

// Connect establishes every configured alias. Each connection is retried a
// bounded number of times with a sleep between attempts; the last failure
// is returned.
func (m *ConnectionManager) Connect(ctx context.Context, cfg *Config) error {
	for alias, dbCfg := range cfg.Databases {
		client, err := m.establish(ctx, alias, dbCfg)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.clients[alias] = client
		m.databases[alias] = client.Database(dbCfg.Name)
		m.mu.Unlock()
	}
	return nil
}

func (m *ConnectionManager) establish(ctx context.Context, alias string, cfg DatabaseConfig) (*mongo.Client, error) {
	uri := cfg.ConnectionURI()
	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err
		m.log.Error("failed to connect",
			zap.String("alias", alias),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == maxConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectSleep):
		}
	}
	return nil, fmt.Errorf("connect %s: %w", alias, lastErr)
}

// Database resolves a configured alias.
func (m *ConnectionManager) Database(alias string) (*mongo.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	db, ok := m.databases[alias]
	if !ok {
		return nil, fmt.Errorf("no connection for %s", alias)
	}
	return db, nil
}

// DropDatabase drops the database behind an alias. Intended for tests.
func (m *ConnectionManager) DropDatabase(ctx context.Context, alias string) error {
	db, err := m.Database(alias)
	if err != nil {
		return err
	}
	return db.Drop(ctx)
}

// Close disconnects every client.
func (m *ConnectionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for alias, client := range m.clients {
		if err := client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(m.clients, alias)
		delete(m.databases, alias)
	}
	return firstErr
}

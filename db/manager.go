package db

import (
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arbor-orm/arbor"
)

// Manager is a registry of named connections, constructed lazily from
// configuration. Build one at process start and pass it to whatever
// needs connections; there is no package-level instance.
type Manager struct {
	mu      sync.RWMutex
	configs map[string]Config
	conns   map[string]*Connection
	def     string
	opts    []Option

	// group serializes the create-if-absent path so concurrent first
	// access to a name yields a single Connection.
	group singleflight.Group
}

// NewManager returns a Manager for the given named configurations.
// defaultName is the connection resolved when none is requested.
func NewManager(configs map[string]Config, defaultName string, opts ...Option) *Manager {
	cp := make(map[string]Config, len(configs))
	for name, cfg := range configs {
		cp[name] = cfg
	}
	return &Manager{
		configs: cp,
		conns:   make(map[string]*Connection),
		def:     defaultName,
		opts:    opts,
	}
}

// NewManagerFromFile builds a Manager from a configuration file.
func NewManagerFromFile(path string, opts ...Option) (*Manager, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewManager(f.Connections, f.Default, opts...), nil
}

// Connection returns the named connection, constructing it on first use.
// An empty name resolves to the default connection. Repeated calls return
// the same instance until Disconnect. Unknown names fail with a
// ConfigurationError.
func (m *Manager) Connection(name string) (*Connection, error) {
	if name == "" {
		name = m.def
	}
	m.mu.RLock()
	conn, ok := m.conns[name]
	m.mu.RUnlock()
	if ok {
		return conn, nil
	}
	v, err, _ := m.group.Do(name, func() (any, error) {
		m.mu.RLock()
		conn, ok := m.conns[name]
		m.mu.RUnlock()
		if ok {
			return conn, nil
		}
		cfg, ok := m.configs[name]
		if !ok {
			return nil, arbor.NewConfigurationError(name, "", "connection is not configured")
		}
		conn, err := Connect(cfg, m.opts...)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.conns[name] = conn
		m.mu.Unlock()
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Connection), nil
}

// Default returns the default connection.
func (m *Manager) Default() (*Connection, error) {
	return m.Connection("")
}

// DefaultName returns the configured default connection name.
func (m *Manager) DefaultName() string {
	return m.def
}

// Names returns the configured connection names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	return names
}

// Disconnect closes and drops the named connection. Disconnecting a
// connection that was never opened is a no-op.
func (m *Manager) Disconnect(name string) error {
	if name == "" {
		name = m.def
	}
	m.mu.Lock()
	conn, ok := m.conns[name]
	delete(m.conns, name)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.Close()
}

// DisconnectAll closes and drops every open connection.
func (m *Manager) DisconnectAll() error {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*Connection)
	m.mu.Unlock()
	var errs []error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

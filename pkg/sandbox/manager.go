package sandbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// Manager tracks interactive sessions by ID
type Manager struct {
	interpreter string
	workDir     string
	logger      logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithManagerInterpreter sets the interpreter for new sessions
func WithManagerInterpreter(interpreter string) ManagerOption {
	return func(m *Manager) {
		m.interpreter = interpreter
	}
}

// WithManagerWorkDir sets the working directory for new sessions
func WithManagerWorkDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.workDir = dir
	}
}

// WithManagerLogger sets the logger
func WithManagerLogger(logger logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager
func NewManager(options ...ManagerOption) *Manager {
	manager := &Manager{
		interpreter: "python3",
		logger:      logging.New(),
		sessions:    make(map[string]*Session),
	}

	for _, option := range options {
		option(manager)
	}

	return manager
}

// StartFile launches an interactive session for an existing file and
// returns its session ID.
func (m *Manager) StartFile(ctx context.Context, path string) (*Session, error) {
	id := uuid.NewString()

	session, err := startSession(id, m.interpreter, path, m.workDir)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	m.logger.Info(ctx, "started execution session", map[string]interface{}{
		"session_id": id,
		"file":       filepath.Base(path),
	})

	return session, nil
}

// StartCode writes code to a temporary file and launches a session on it.
// The file is removed when the session is stopped or reaped.
func (m *Manager) StartCode(ctx context.Context, code string) (*Session, error) {
	dir := m.workDir
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, fmt.Sprintf("session-%s.py", uuid.NewString()))
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write code file: %w", err)
	}

	session, err := m.StartFile(ctx, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	go func() {
		<-session.done
		os.Remove(path)
	}()

	return session, nil
}

// Get returns a session by ID
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	return session, ok
}

// Stop kills a session and removes it from the manager
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}

	if err := session.Stop(); err != nil {
		return err
	}

	m.logger.Info(ctx, "stopped execution session", map[string]interface{}{
		"session_id": id,
	})

	return nil
}

// StopAll kills every tracked session
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for id, session := range sessions {
		if err := session.Stop(); err != nil {
			m.logger.Warn(ctx, "failed to stop session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
}

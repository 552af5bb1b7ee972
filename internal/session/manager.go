package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Zwang-23/medassist/internal/config"
	"github.com/Zwang-23/medassist/internal/entity"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	uploadsSubdir = "uploaded-files"
	indexSubdir   = "index"
)

// Manager owns all live sessions. Sessions idle past the configured
// TTL are reaped by the cache janitor, which also removes the
// session's directory tree.
type Manager struct {
	mu     sync.Mutex
	root   string
	cache  *gocache.Cache
	logger *zap.Logger
}

func NewManager(cfg config.SessionConfig, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions root: %w", err)
	}

	cache := gocache.New(cfg.IdleTTL, cfg.SweepInterval)
	m := &Manager{root: cfg.RootDir, cache: cache, logger: logger}
	cache.OnEvicted(func(id string, _ any) {
		logger.Info("reaping session", zap.String("session_id", id))
		if err := os.RemoveAll(filepath.Join(cfg.RootDir, id)); err != nil {
			logger.Error("failed to remove session directory",
				zap.String("session_id", id), zap.Error(err))
		}
	})
	return m, nil
}

// GetOrCreate returns the live session for id, refreshing its idle
// timer, or a fresh session when id is empty or unknown (expired).
func (m *Manager) GetOrCreate(id string) *entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if v, ok := m.cache.Get(id); ok {
			sess := v.(*entity.Session)
			m.cache.SetDefault(id, sess)
			return sess
		}
	}
	return m.create()
}

// Replace discards old (directory included) and hands back a fresh
// session. Used on reset and on re-upload over an indexed session.
func (m *Manager) Replace(old *entity.Session) *entity.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old != nil {
		m.cache.Delete(old.ID)
	}
	return m.create()
}

func (m *Manager) create() *entity.Session {
	id := uuid.New().String()
	dir := filepath.Join(m.root, id)
	sess := &entity.Session{
		ID:        id,
		DataPath:  filepath.Join(dir, uploadsSubdir),
		IndexPath: filepath.Join(dir, indexSubdir),
	}
	m.cache.SetDefault(id, sess)
	m.logger.Info("session created", zap.String("session_id", id))
	return sess
}

// MarkIndexed records a successful upload: the session now has a
// document, and the upload notice becomes the leading synthetic
// history turn.
func (m *Manager) MarkIndexed(sess *entity.Session, filename, notice string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.UploadedFiles = []string{filename}
	sess.HasDocuments = true
	if len(sess.History) == 0 {
		sess.History = append(sess.History, entity.Turn{
			Role:    entity.RoleAssistant,
			Content: notice,
		})
	}
	m.cache.SetDefault(sess.ID, sess)
}

// Append adds a completed (user, assistant) pair to the session's
// history.
func (m *Manager) Append(sess *entity.Session, userMsg, assistantMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.History = append(sess.History,
		entity.Turn{Role: entity.RoleUser, Content: userMsg},
		entity.Turn{Role: entity.RoleAssistant, Content: assistantMsg},
	)
	m.cache.SetDefault(sess.ID, sess)
}

// History returns a copy of the session's conversation history.
func (m *Manager) History(sess *entity.Session) []entity.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.Turn, len(sess.History))
	copy(out, sess.History)
	return out
}

// HasDocuments reports whether the session currently has an indexed
// document.
func (m *Manager) HasDocuments(sess *entity.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sess.HasDocuments
}

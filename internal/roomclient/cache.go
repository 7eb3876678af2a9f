package roomclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

const (
	CacheKey         = "score-room-session"
	DefaultFreshness = 24 * time.Hour
)

// CacheEntry последняя известная комната, участник и сессия
type CacheEntry struct {
	Room       dto.RoomResponse   `json:"room"`
	Member     dto.MemberResponse `json:"member"`
	SessionID  uuid.UUID          `json:"session_id"`
	CapturedAt time.Time          `json:"captured_at"`
}

type Cache interface {
	// Load возвращает nil без ошибки, если записи нет
	Load() (*CacheEntry, error)
	Save(entry *CacheEntry) error
	Clear() error
}

// FileCache хранит запись в <dir>/score-room-session.json
type FileCache struct {
	path string
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{path: filepath.Join(dir, CacheKey+".json")}
}

func (c *FileCache) Load() (*CacheEntry, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *FileCache) Save(entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *FileCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CachedSession запись кэша, прошедшая проверку свежести. Это только
// заготовка до обязательного перечитывания снимка.
type CachedSession struct {
	Entry             CacheEntry
	NeedsRevalidation bool
}

// CachePolicy единственный путь чтения кэша
type CachePolicy struct {
	Freshness time.Duration
	Now       func() time.Time
}

func DefaultCachePolicy() CachePolicy {
	return CachePolicy{Freshness: DefaultFreshness, Now: time.Now}
}

// Read отдает свежую запись с флагом ревалидации. Устаревшая или битая
// запись удаляется.
func (p CachePolicy) Read(c Cache) (*CachedSession, error) {
	entry, err := c.Load()
	if err != nil {
		logrus.WithError(err).Warn("Unreadable session cache, clearing")
		return nil, c.Clear()
	}
	if entry == nil {
		return nil, nil
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	freshness := p.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}

	if now().Sub(entry.CapturedAt) > freshness {
		logrus.WithField("captured_at", entry.CapturedAt).Info("Session cache is stale, discarding")
		return nil, c.Clear()
	}
	return &CachedSession{Entry: *entry, NeedsRevalidation: true}, nil
}

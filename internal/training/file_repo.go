package training

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileRepo keeps the whole session collection in a single JSON file,
// rewritten wholesale on every mutation. Fine for a single user, and the
// mutex keeps concurrent requests of one process from corrupting the file.
type FileRepo struct {
	path  string
	mutex sync.Mutex
}

func NewFileRepo(path string) (*FileRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("create sessions file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat sessions file: %w", err)
	}
	return &FileRepo{path: path}, nil
}

func (r *FileRepo) List(_ context.Context) ([]Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.load()
}

func (r *FileRepo) Get(_ context.Context, id int) (*Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sessions, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

func (r *FileRepo) Add(_ context.Context, session *Session) (*Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sessions, err := r.load()
	if err != nil {
		return nil, err
	}

	maxID := -1
	for _, s := range sessions {
		if s.ID > maxID {
			maxID = s.ID
		}
	}
	session.ID = maxID + 1
	session.CreatedAt = time.Now()

	sessions = append(sessions, *session)
	if err := r.save(sessions); err != nil {
		return nil, err
	}
	return session, nil
}

func (r *FileRepo) Update(_ context.Context, session *Session) (*Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sessions, err := r.load()
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		if sessions[i].ID != session.ID {
			continue
		}
		// full record replace, id and created_at preserved
		session.CreatedAt = sessions[i].CreatedAt
		session.UpdatedAt = time.Now()
		sessions[i] = *session
		if err := r.save(sessions); err != nil {
			return nil, err
		}
		return session, nil
	}

	return nil, ErrSessionNotFound
}

func (r *FileRepo) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	sessions, err := r.load()
	if err != nil {
		return err
	}

	remaining := sessions[:0]
	for _, s := range sessions {
		if s.ID != id {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == len(sessions) {
		return ErrSessionNotFound
	}

	return r.save(remaining)
}

func (r *FileRepo) load() ([]Session, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}
	if len(data) == 0 {
		return []Session{}, nil
	}

	// legacy records may lack an id, those get the file position as id
	var records []struct {
		Session
		ID *int `json:"id"`
	}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Errorf("sessions file corrupted, starting with empty list: %s", err)
		return []Session{}, nil
	}

	sessions := make([]Session, 0, len(records))
	for i := range records {
		s := records[i].Session
		if records[i].ID != nil {
			s.ID = *records[i].ID
		} else {
			s.ID = i
		}
		sessions = append(sessions, s)
	}

	// most recent first
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Fecha > sessions[j].Fecha
	})

	return sessions, nil
}

func (r *FileRepo) save(sessions []Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write sessions file: %w", err)
	}
	return nil
}

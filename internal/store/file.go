package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// File persists all sessions as one JSON document. Writes go through a
// temp file and rename so a crash mid-save never truncates the previous
// snapshot.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) LoadAll(ctx context.Context) (map[string]*session.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*session.State{}, nil
		}
		return nil, fmt.Errorf("read sessions file: %w", err)
	}

	var sessions map[string]*session.State
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("parse sessions file: %w", err)
	}
	if sessions == nil {
		sessions = map[string]*session.State{}
	}
	return sessions, nil
}

func (f *File) SaveAll(ctx context.Context, sessions map[string]*session.State) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}

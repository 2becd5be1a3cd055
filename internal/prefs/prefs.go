// Package prefs keeps local, per-machine settings in a bbolt file: the
// display theme and the signed-in session token.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.etcd.io/bbolt"
)

var bucket = []byte("prefs")

// Fixed preference keys
const (
	ThemeKey = "pulsetrack-theme"
	TokenKey = "pulsetrack-session"
)

// ErrNotSet is returned by Get when a key was never saved.
var ErrNotSet = errors.New("preference not set")

// Theme is the display theme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme accepts "dark" or "light".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q (want dark or light)", s)
}

// Store wraps the preferences database
type Store struct {
	db         *bbolt.DB
	detectDark func() bool
}

// Open opens (or creates) the preferences file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create prefs directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prefs: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create prefs bucket: %w", err)
	}
	return &Store{db: db, detectDark: lipgloss.HasDarkBackground}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores value under key as JSON.
func Save[T any](s *Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// Get loads the value stored under key, or ErrNotSet.
func Get[T any](s *Store, key string) (T, error) {
	var out T
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v == nil {
			return ErrNotSet
		}
		return json.Unmarshal(v, &out)
	})
	return out, err
}

// Delete removes key. Deleting a missing key is not an error.
func Delete(s *Store, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// SetTheme stores the theme flag.
func (s *Store) SetTheme(t Theme) error {
	return Save(s, ThemeKey, t)
}

// Theme returns the stored theme. When none is stored it falls back to the
// terminal background.
func (s *Store) Theme() (Theme, error) {
	t, err := Get[Theme](s, ThemeKey)
	if errors.Is(err, ErrNotSet) {
		if s.detectDark() {
			return ThemeDark, nil
		}
		return ThemeLight, nil
	}
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	return t, nil
}

// Token returns the stored session token, or "" when signed out.
func (s *Store) Token() (string, error) {
	token, err := Get[string](s, TokenKey)
	if errors.Is(err, ErrNotSet) {
		return "", nil
	}
	return token, err
}

// SetToken stores the session token. An empty token signs out.
func (s *Store) SetToken(token string) error {
	if token == "" {
		return Delete(s, TokenKey)
	}
	return Save(s, TokenKey, token)
}

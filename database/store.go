package database

import (
	"encoding/json"
	"log"
	"time"

	"github.com/korjavin/genrequizbot/models"
)

// Setting keys
const (
	KeyBackgroundAudio = "bgmEnabled"
	KeyEffectAudio     = "soundEnabled"
	KeyClearedGenres   = "clearedGenres"
)

// Store exposes one user's persisted flags.
// Reads fall back to defaults on missing or corrupt rows; writes report a *PersistenceError.
type Store struct {
	db     *DB
	userID int64
	now    func() time.Time
}

// ForUser returns the store of a single user
func (db *DB) ForUser(userID int64) *Store {
	return &Store{db: db, userID: userID, now: time.Now}
}

// Settings loads the audio switches, background audio off and effects on by default
func (s *Store) Settings() models.Settings {
	settings := models.DefaultSettings()

	if v, ok := s.read(KeyBackgroundAudio); ok {
		settings.BackgroundAudio = v == "true"
	}
	if v, ok := s.read(KeyEffectAudio); ok {
		settings.EffectAudio = v != "false"
	}
	return settings
}

// PutSettings saves both audio switches
func (s *Store) PutSettings(settings models.Settings) error {
	values := map[string]string{
		KeyBackgroundAudio: formatBool(settings.BackgroundAudio),
		KeyEffectAudio:     formatBool(settings.EffectAudio),
	}
	if err := s.db.SetValues(s.userID, values, s.now().Unix()); err != nil {
		return &PersistenceError{Op: "put", Key: "settings", Err: err}
	}
	return nil
}

// ClearedGenres loads the cleared-genre map, empty when missing or unreadable
func (s *Store) ClearedGenres() models.ClearedGenres {
	cleared := models.ClearedGenres{}
	raw, ok := s.read(KeyClearedGenres)
	if !ok {
		return cleared
	}

	var stored map[string]bool
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("Warning: corrupt %s for user %d: %v", KeyClearedGenres, s.userID, err)
		return cleared
	}
	for id, ok := range stored {
		if ok {
			cleared[id] = true
		}
	}
	return cleared
}

// PutClearedGenres saves the cleared-genre map as a JSON object
func (s *Store) PutClearedGenres(cleared models.ClearedGenres) error {
	data, err := json.Marshal(cleared.Clone())
	if err != nil {
		return &PersistenceError{Op: "encode", Key: KeyClearedGenres, Err: err}
	}
	values := map[string]string{KeyClearedGenres: string(data)}
	if err := s.db.SetValues(s.userID, values, s.now().Unix()); err != nil {
		return &PersistenceError{Op: "put", Key: KeyClearedGenres, Err: err}
	}
	return nil
}

// ResetClearedGenres forgets every cleared genre
func (s *Store) ResetClearedGenres() error {
	if err := s.db.DeleteValue(s.userID, KeyClearedGenres); err != nil {
		return &PersistenceError{Op: "delete", Key: KeyClearedGenres, Err: err}
	}
	return nil
}

func (s *Store) read(key string) (string, bool) {
	v, ok, err := s.db.GetValue(s.userID, key)
	if err != nil {
		log.Printf("Error reading %s for user %d: %v", key, s.userID, err)
		return "", false
	}
	return v, ok
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

package models

// Settings stores the two audio switches of a user
type Settings struct {
	BackgroundAudio bool
	EffectAudio     bool
}

// DefaultSettings returns the settings used when nothing has been stored yet
func DefaultSettings() Settings {
	return Settings{BackgroundAudio: false, EffectAudio: true}
}

// ClearedGenres maps genre ids to true once the user passed them.
// Absence means the genre is not cleared.
type ClearedGenres map[string]bool

// Clone returns an independent copy
func (c ClearedGenres) Clone() ClearedGenres {
	out := make(ClearedGenres, len(c))
	for id, ok := range c {
		if ok {
			out[id] = true
		}
	}
	return out
}

// AllCleared reports whether every genre of the catalog is cleared
func (c ClearedGenres) AllCleared(catalog *Catalog) bool {
	if catalog == nil || len(catalog.Genres) == 0 {
		return false
	}
	for _, g := range catalog.Genres {
		if !c[g.ID] {
			return false
		}
	}
	return true
}

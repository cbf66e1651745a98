package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/korjavin/genrequizbot/models"
)

// DefaultSource is the well-known relative path of the quiz data document
const DefaultSource = "assets/quiz_data.json"

const defaultTimeout = 10 * time.Second

// LoadError reports why a catalog document could not be used
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load catalog from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader fetches the catalog document from a file path or an http(s) URL
type Loader struct {
	source string
	client *resty.Client
}

// NewLoader creates a loader for the given source. An empty source means DefaultSource.
func NewLoader(source string, timeout time.Duration) *Loader {
	if source == "" {
		source = DefaultSource
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Loader{
		source: source,
		client: resty.New().SetTimeout(timeout),
	}
}

// Source returns the configured location of the catalog document
func (l *Loader) Source() string {
	return l.source
}

// Load returns the catalog, falling back to the built-in sample on any failure.
// It never returns nil.
func (l *Loader) Load(ctx context.Context) *models.Catalog {
	c, err := l.Fetch(ctx)
	if err != nil {
		log.Printf("Warning: %v; using built-in sample catalog", err)
		return Fallback()
	}
	log.Printf("Loaded %d genres from %s", len(c.Genres), l.source)
	return c
}

// Fetch reads, decodes and validates the catalog document without falling back
func (l *Loader) Fetch(ctx context.Context) (*models.Catalog, error) {
	data, err := l.read(ctx)
	if err != nil {
		return nil, &LoadError{Source: l.source, Err: err}
	}

	var c models.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &LoadError{Source: l.source, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := Validate(&c); err != nil {
		return nil, &LoadError{Source: l.source, Err: fmt.Errorf("validate: %w", err)}
	}
	return &c, nil
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	if !isRemote(l.source) {
		return os.ReadFile(l.source)
	}

	resp, err := l.client.R().SetContext(ctx).Get(l.source)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}
	return body, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

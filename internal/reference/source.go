package reference

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

//go:embed data/reference_tables.json
var embeddedBundle []byte

// Fetcher retrieves a remote bundle. Implemented by the outbound HTTP client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options selects where Load reads the bundle from.
// URL takes precedence over Path; with neither set the embedded bundle is used.
type Options struct {
	Path    string
	URL     string
	Fetcher Fetcher
	Logger  *slog.Logger
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
	defaultErr   error
)

// Default returns the process-wide store built from the embedded bundle.
// It panics if the embedded asset is malformed, which is a build defect.
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore, defaultErr = Decode(embeddedBundle)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded reference bundle: %v", defaultErr))
	}
	return defaultStore
}

// EmbeddedBundle returns a copy of the raw embedded bundle bytes.
func EmbeddedBundle() []byte {
	out := make([]byte, len(embeddedBundle))
	copy(out, embeddedBundle)
	return out
}

// LoadFile reads and validates a bundle from disk (.json or .json.zst).
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot read %s", path), Err: err}
	}
	return Decode(data)
}

// LoadURL fetches and validates a bundle through f.
func LoadURL(ctx context.Context, f Fetcher, url string) (*Store, error) {
	if f == nil {
		return nil, &ConfigurationError{Reason: "no fetcher configured for remote bundle"}
	}
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot fetch %s", url), Err: err}
	}
	return Decode(data)
}

// Load resolves opts to a Store. Errors are always *ConfigurationError.
func Load(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store  *Store
		err    error
		origin string
	)
	switch {
	case opts.URL != "":
		origin = opts.URL
		store, err = LoadURL(ctx, opts.Fetcher, opts.URL)
	case opts.Path != "":
		origin = opts.Path
		store, err = LoadFile(opts.Path)
	default:
		origin = "embedded"
		store, err = Decode(embeddedBundle)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("reference tables loaded",
		"origin", origin,
		"version", store.Version(),
		"tables", len(store.tables),
	)
	if approx := store.Approximate(); len(approx) > 0 {
		logger.Warn("reference bundle carries approximated tables; load the published tables for clinical use",
			"origin", origin,
			"families", approx,
		)
	}
	return store, nil
}

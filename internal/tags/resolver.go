// =============================================================================
// Constituent Import - Tag Resolver
// =============================================================================
//
// The resolver fetches the raw-name to canonical-name tag mapping from the
// external lookup endpoint exactly once per run. The first call performs the
// fetch; every later call returns the cached result. A failed fetch is cached
// as an empty mapping and is never retried, so tags pass through unchanged.
//
// =============================================================================

package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/constituent-import/internal/logging"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

const (
	// DefaultURL is the tag lookup endpoint.
	DefaultURL = "https://6719768f7fc4c5ff8f4d84f1.mockapi.io/api/v1/tags"
	// DefaultTimeout bounds the single lookup request.
	DefaultTimeout = 10 * time.Second
)

// Mapping maps a trimmed raw tag name to its trimmed canonical name.
type Mapping map[string]string

// entry is one element of the lookup payload.
type entry struct {
	Name       *string `json:"name"`
	MappedName *string `json:"mapped_name"`
}

// Resolver owns the run-scoped tag mapping cache.
type Resolver struct {
	URL    string
	Client *http.Client
	Logger *zerolog.Logger

	once    sync.Once
	mapping Mapping
	err     error
}

// NewResolver creates a resolver for url. A zero timeout uses DefaultTimeout.
func NewResolver(url string, timeout time.Duration, logger *zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

// NewStaticResolver returns a resolver already holding mapping. It never
// performs a network call.
func NewStaticResolver(mapping Mapping) *Resolver {
	r := &Resolver{Logger: logging.Default()}
	r.once.Do(func() {
		r.mapping = normalize(mapping)
	})
	return r
}

// Mapping returns the cached mapping, fetching it on the first call. The
// result is never nil.
func (r *Resolver) Mapping(ctx context.Context) Mapping {
	r.once.Do(func() {
		mapping, err := r.fetch(ctx)
		if err != nil {
			r.Logger.Warn().Err(err).Str("url", r.URL).
				Msg("tag lookup failed, using original tag names")
			r.err = err
			r.mapping = Mapping{}
			return
		}
		r.Logger.Info().Int("mappings", len(mapping)).Msg("fetched tag mapping")
		r.mapping = mapping
	})
	return r.mapping
}

// Err reports the fetch failure that caused the resolver to degrade, if any.
func (r *Resolver) Err() error {
	return r.err
}

// Degraded reports whether the resolver fell back to an empty mapping.
func (r *Resolver) Degraded() bool {
	return r.err != nil
}

func (r *Resolver) fetch(ctx context.Context) (Mapping, error) {
	r.Logger.Info().Str("url", r.URL).Msg("fetching tag mapping")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, &types.TagLookupError{URL: r.URL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, &types.TagLookupError{URL: r.URL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.TagLookupError{
			URL:        r.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &types.TagLookupError{URL: r.URL, Err: fmt.Errorf("decoding payload: %w", err)}
	}

	mapping := make(Mapping, len(entries))
	for i, e := range entries {
		if e.Name == nil || e.MappedName == nil {
			return nil, &types.TagLookupError{
				URL: r.URL,
				Err: fmt.Errorf("entry %d: missing name or mapped_name", i),
			}
		}
		mapping[strings.TrimSpace(*e.Name)] = strings.TrimSpace(*e.MappedName)
	}
	return mapping, nil
}

func normalize(m Mapping) Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

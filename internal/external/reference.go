package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"growthwatch/internal/security"
	"growthwatch/internal/types"
)

// maxReferenceBytes caps a downloaded bundle. Full WHO/CDC tables are well
// under a megabyte compressed.
const maxReferenceBytes = 32 << 20

// ReferenceFetcher downloads reference table bundles over HTTP. It satisfies
// reference.Fetcher.
type ReferenceFetcher struct {
	*BaseClient
}

// NewReferenceFetcher creates a fetcher whose requests time out after
// timeout.
func NewReferenceFetcher(timeout time.Duration, userAgent string, opts ...BaseClientOption) *ReferenceFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ReferenceFetcher{
		BaseClient: NewBaseClient(
			&http.Client{Timeout: timeout},
			"reference-tables",
			DefaultRetryPolicy(),
			userAgent,
			opts...,
		),
	}
}

// NewGuardedReferenceFetcher is NewReferenceFetcher with a transport that
// refuses loopback, link-local and private destinations, including on
// redirects.
func NewGuardedReferenceFetcher(timeout time.Duration, userAgent string, opts ...BaseClientOption) *ReferenceFetcher {
	gt := security.NewGuardedTransport(nil)
	guarded := []BaseClientOption{
		WithTransport(gt),
		WithRedirectPolicy(gt.CheckRedirect(security.DefaultMaxRedirects)),
	}
	return NewReferenceFetcher(timeout, userAgent, append(guarded, opts...)...)
}

// Fetch returns the raw body served at url. Bundles may be plain JSON or
// zstd-compressed; decoding is left to the reference package.
func (f *ReferenceFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest,
			"invalid reference tables url", err, map[string]any{"url": url})
	}
	req.Header.Set("Accept", "application/json, application/zstd")

	resp, err := f.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamReferenceSource,
			fmt.Sprintf("reference source returned %d", resp.StatusCode), nil,
			map[string]any{"url": url, "status": resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes+1))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamReferenceSource, "reading reference tables", err)
	}
	if len(body) > maxReferenceBytes {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamReferenceSource,
			"reference tables exceed size limit", nil, map[string]any{"limit_bytes": maxReferenceBytes})
	}
	return body, nil
}

// FetcherFor returns a guarded fetcher, or an unguarded one when local is
// true so that bundles can be served from localhost during development.
func FetcherFor(local bool, timeout time.Duration, userAgent string, opts ...BaseClientOption) *ReferenceFetcher {
	if local {
		return NewReferenceFetcher(timeout, userAgent, opts...)
	}
	return NewGuardedReferenceFetcher(timeout, userAgent, opts...)
}

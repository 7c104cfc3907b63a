package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/olablt/gio-fieldmap/tiles"
)

const (
	DefaultURL       = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultUserAgent = "gio-fieldmap/1.0 (+https://github.com/olablt/gio-fieldmap)"

	maxTileBytes = 8 << 20
)

// HTTP fetches tiles from a URL template with {z}, {x}, {y} and optional
// {s} (subdomain) placeholders.
type HTTP struct {
	client     *http.Client
	template   string
	subdomains []string
	userAgent  string
	referer    string
}

type HTTPOption func(*HTTP)

func WithClient(c *http.Client) HTTPOption {
	return func(p *HTTP) { p.client = c }
}

func WithSubdomains(s ...string) HTTPOption {
	return func(p *HTTP) { p.subdomains = s }
}

func WithUserAgent(ua string) HTTPOption {
	return func(p *HTTP) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

func WithReferer(ref string) HTTPOption {
	return func(p *HTTP) { p.referer = ref }
}

func NewHTTP(template string, opts ...HTTPOption) *HTTP {
	if template == "" {
		template = DefaultURL
	}
	p := &HTTP{
		client:    &http.Client{},
		template:  template,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL expands the template for tile. The subdomain is picked from the tile
// position so a tile always maps to the same host.
func (p *HTTP) URL(tile tiles.Tile) string {
	s := ""
	if len(p.subdomains) > 0 {
		s = p.subdomains[(tile.X+tile.Y)%len(p.subdomains)]
	}
	return strings.NewReplacer(
		"{z}", strconv.Itoa(tile.Zoom),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
		"{s}", s,
	).Replace(p.template)
}

func (p *HTTP) Fetch(ctx context.Context, tile tiles.Tile) ([]byte, error) {
	url := p.URL(tile)
	log.WithField("tile", tile.String()).Debugf("requesting %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/png,image/jpeg,image/*;q=0.8")
	if p.referer != "" {
		req.Header.Set("Referer", p.referer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("providers: fetch %s: %w", tile, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tile)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("providers: fetch %s: unexpected status %s", tile, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("providers: read %s: %w", tile, err)
	}
	return data, nil
}

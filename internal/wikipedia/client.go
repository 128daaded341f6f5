// Package wikipedia reads genre and cover-art data from the MediaWiki API
// for the pages linked from archive entries.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/fussin-and-lovin/archiver/internal/models"
	"github.com/fussin-and-lovin/archiver/internal/textnorm"
)

// DefaultAPI is the English Wikipedia action API
const DefaultAPI = "https://en.wikipedia.org/w/api.php"

// ErrNoGenres means neither linked page had a genre field
var ErrNoGenres = errors.New("no genres found")

var curidRe = regexp.MustCompile(`curid=(\d+)`)

// Client is a MediaWiki API client. Responses are memoized for an hour and
// requests are spaced at least Delay apart.
type Client struct {
	APIURL string
	Delay  time.Duration

	httpClient *http.Client
	cache      *cache.Cache

	mu   sync.Mutex
	last time.Time
}

// NewClient creates a client for apiURL. An empty apiURL uses
// WIKIPEDIA_API, then DefaultAPI.
func NewClient(apiURL string) *Client {
	if apiURL == "" {
		apiURL = os.Getenv("WIKIPEDIA_API")
	}
	if apiURL == "" {
		apiURL = DefaultAPI
	}
	return &Client{
		APIURL: apiURL,
		Delay:  200 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache.New(time.Hour, 10*time.Minute),
	}
}

// PageID pulls the curid page id out of a Wikipedia link.
func PageID(wikiURL string) (string, bool) {
	m := curidRe.FindStringSubmatch(wikiURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Wikitext returns the current wikitext of a page.
func (c *Client) Wikitext(ctx context.Context, pageID string) (string, error) {
	key := "wikitext:" + pageID
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Missing   *string `json:"missing"`
				Revisions []struct {
					Content string `json:"*"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action":  {"query"},
		"pageids": {pageID},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"format":  {"json"},
		"utf8":    {"1"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}

	page, ok := resp.Query.Pages[pageID]
	if !ok || page.Missing != nil || len(page.Revisions) == 0 {
		return "", fmt.Errorf("no content for page %s", pageID)
	}
	text := page.Revisions[0].Content
	c.cache.SetDefault(key, text)
	return text, nil
}

// Genres returns the raw infobox genres of a page, or nil when it has none.
func (c *Client) Genres(ctx context.Context, pageID string) ([]string, error) {
	text, err := c.Wikitext(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return textnorm.ParseInfoboxGenres(text), nil
}

// AlbumGenres looks up the raw genres for an entry: the album page first,
// then the artist page. It also reports which page answered.
func (c *Client) AlbumGenres(ctx context.Context, e models.Entry) ([]string, string, error) {
	sources := []struct {
		name string
		link string
	}{
		{"album", e.AlbumWiki},
		{"artist", e.ArtistWiki},
	}

	var lastErr error
	for _, src := range sources {
		id, ok := PageID(src.link)
		if !ok {
			continue
		}
		genres, err := c.Genres(ctx, id)
		if err != nil {
			slog.Debug("Genre lookup failed", "number", e.Number, "page", src.name, "page_id", id, "error", err)
			lastErr = err
			continue
		}
		if len(genres) > 0 {
			return genres, src.name, nil
		}
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("%w for #%d: %v", ErrNoGenres, e.Number, lastErr)
	}
	return nil, "", fmt.Errorf("%w for #%d", ErrNoGenres, e.Number)
}

// wait blocks until Delay has passed since the previous request
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	next := c.last.Add(c.Delay)
	now := time.Now()
	if next.Before(now) {
		next = now
	}
	c.last = next
	c.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) get(ctx context.Context, params url.Values, v any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "archiver/1.0 (song archive enrichment)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query Wikipedia: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wikipedia API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode Wikipedia response: %w", err)
	}
	return nil
}

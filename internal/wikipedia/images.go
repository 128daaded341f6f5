package wikipedia

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
)

// Image is a file used on a page, with the metadata used to rank it
type Image struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
	Score  int    `json:"score"`
}

var titleScores = []struct {
	keyword string
	points  int
}{
	{"album cover", 15},
	{"album artwork", 15},
	{"cover art", 15},
	{"album sleeve", 15},
	{"front cover", 12},
	{"cd cover", 12},
	{"lp cover", 12},
	{"vinyl", 8},
	{"portrait", -20},
	{"photo", -15},
	{"live", -10},
	{"concert", -10},
	{"logo", -10},
	{"icon", -15},
	{"svg", -10},
	{"button", -15},
	{"ui", -15},
}

// ScoreTitle scores an image file title by the cover-like and
// non-cover-like words in it. Every keyword present counts.
func ScoreTitle(title string) int {
	t := strings.ToLower(title)
	score := 0
	for _, s := range titleScores {
		if strings.Contains(t, s.keyword) {
			score += s.points
		}
	}
	return score
}

// ScoreInfo scores image metadata. Square, large raster images rank
// highest; the ratio bands are cumulative.
func ScoreInfo(img Image) int {
	score := 0
	if img.Width > 0 && img.Height > 0 {
		ratio := float64(img.Width) / float64(img.Height)
		if ratio >= 0.9 && ratio <= 1.1 {
			score += 10
		}
		if ratio >= 0.8 && ratio <= 1.2 {
			score += 5
		}
		if ratio >= 0.7 && ratio <= 1.3 {
			score += 2
		}

		switch side := min(img.Width, img.Height); {
		case side >= 1000:
			score += 10
		case side >= 500:
			score += 5
		case side >= 300:
			score += 2
		}
	}
	if img.Size > 100000 && img.Size < 2000000 {
		score += 5
	}
	switch {
	case img.MIME == "image/svg+xml":
		score -= 20
	case img.MIME == "image/png" && img.Size < 50000:
		score -= 10
	}
	return score
}

// PageImages lists the file titles used on a page.
func (c *Client) PageImages(ctx context.Context, pageID string) ([]string, error) {
	key := "images:" + pageID
	if v, ok := c.cache.Get(key); ok {
		return v.([]string), nil
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Images []struct {
					Title string `json:"title"`
				} `json:"images"`
			} `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action":  {"query"},
		"pageids": {pageID},
		"prop":    {"images"},
		"imlimit": {"50"},
		"format":  {"json"},
		"utf8":    {"1"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}

	var titles []string
	for _, img := range resp.Query.Pages[pageID].Images {
		titles = append(titles, img.Title)
	}
	c.cache.SetDefault(key, titles)
	return titles, nil
}

// ImageInfo resolves a file title to its URL, size and type.
func (c *Client) ImageInfo(ctx context.Context, title string) (Image, error) {
	key := "imageinfo:" + title
	if v, ok := c.cache.Get(key); ok {
		return v.(Image), nil
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				ImageInfo []struct {
					URL    string `json:"url"`
					MIME   string `json:"mime"`
					Width  int    `json:"width"`
					Height int    `json:"height"`
					Size   int    `json:"size"`
				} `json:"imageinfo"`
			} `json:"pages"`
		} `json:"query"`
	}
	params := url.Values{
		"action": {"query"},
		"titles": {title},
		"prop":   {"imageinfo"},
		"iiprop": {"url|size|mime"},
		"format": {"json"},
		"utf8":   {"1"},
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return Image{}, err
	}

	for _, page := range resp.Query.Pages {
		if len(page.ImageInfo) == 0 {
			continue
		}
		ii := page.ImageInfo[0]
		img := Image{Title: title, URL: ii.URL, MIME: ii.MIME, Width: ii.Width, Height: ii.Height, Size: ii.Size}
		c.cache.SetDefault(key, img)
		return img, nil
	}
	return Image{}, fmt.Errorf("no image info for %s", title)
}

// CoverImage picks the most cover-like image on a page.
func (c *Client) CoverImage(ctx context.Context, pageID string) (Image, error) {
	titles, err := c.PageImages(ctx, pageID)
	if err != nil {
		return Image{}, err
	}

	var candidates []Image
	for _, title := range titles {
		img, err := c.ImageInfo(ctx, title)
		if err != nil {
			slog.Debug("Skipping image without info", "title", title, "error", err)
			continue
		}
		if !strings.HasPrefix(img.MIME, "image/") || img.URL == "" {
			continue
		}
		img.Score = ScoreTitle(title) + ScoreInfo(img)
		candidates = append(candidates, img)
	}
	if len(candidates) == 0 {
		return Image{}, fmt.Errorf("no usable images on page %s", pageID)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	best := candidates[0]
	slog.Debug("Picked cover image", "page_id", pageID, "title", best.Title, "score", best.Score, "candidates", len(candidates))
	return best, nil
}

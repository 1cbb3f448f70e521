// Package site holds the marketing page catalog, the embedded templates and
// static assets, and the sitemap and web manifest documents derived from them.
package site

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JakeFAU/zerovo-site/internal/config"
)

// Section is one block of page copy. Sections are reveal targets.
type Section struct {
	Heading string
	Body    string
	Items   []string
}

// Page is a routable marketing page.
type Page struct {
	Path        string
	Title       string
	Description string
	Heading     string
	Lead        string
	Sections    []Section
	// Consultation renders the scheduling widget trigger.
	Consultation bool
	// Nav lists the page in the header navigation under Label.
	Nav   bool
	Label string
}

// Priority is the sitemap priority: 1 for the home page, 0.8 elsewhere.
func (p Page) Priority() float64 {
	if p.Path == "/" {
		return 1
	}
	return 0.8
}

// Catalog indexes pages by path.
type Catalog struct {
	pages  []Page
	byPath map[string]int
}

// NewCatalog indexes pages. Duplicate or relative paths are rejected.
func NewCatalog(pages ...Page) (*Catalog, error) {
	c := &Catalog{byPath: make(map[string]int, len(pages))}
	for _, p := range pages {
		if !strings.HasPrefix(p.Path, "/") {
			return nil, fmt.Errorf("page %q: path must be absolute", p.Path)
		}
		if _, dup := c.byPath[p.Path]; dup {
			return nil, fmt.Errorf("page %q registered twice", p.Path)
		}
		c.byPath[p.Path] = len(c.pages)
		c.pages = append(c.pages, p)
	}
	return c, nil
}

// Lookup finds a page by path, ignoring a trailing slash.
func (c *Catalog) Lookup(path string) (Page, bool) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	i, ok := c.byPath[path]
	if !ok {
		return Page{}, false
	}
	return c.pages[i], true
}

// Pages returns every page in registration order.
func (c *Catalog) Pages() []Page {
	return append([]Page(nil), c.pages...)
}

// Nav returns the pages shown in the header.
func (c *Catalog) Nav() []Page {
	var out []Page
	for _, p := range c.pages {
		if p.Nav {
			out = append(out, p)
		}
	}
	return out
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// Sitemap renders the sitemap.xml document for baseURL, sorted by path.
func (c *Catalog) Sitemap(baseURL string, modified time.Time) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	pages := c.Pages()
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range pages {
		loc := base + p.Path
		if p.Path == "/" {
			loc = base
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        loc,
			LastMod:    modified.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   fmt.Sprintf("%.1f", p.Priority()),
		})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Icon is a web manifest icon entry.
type Icon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// Manifest is the web app manifest.
type Manifest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	StartURL        string `json:"start_url"`
	Display         string `json:"display"`
	BackgroundColor string `json:"background_color"`
	ThemeColor      string `json:"theme_color"`
	Icons           []Icon `json:"icons"`
}

// NewManifest builds the manifest from site metadata.
func NewManifest(cfg config.SiteConfig) Manifest {
	return Manifest{
		Name:            cfg.Name,
		ShortName:       cfg.Name,
		Description:     cfg.Description,
		StartURL:        "/",
		Display:         "standalone",
		BackgroundColor: cfg.ThemeColor,
		ThemeColor:      cfg.ThemeColor,
		Icons: []Icon{
			{Src: "/static/icon.svg", Sizes: "any", Type: "image/svg+xml"},
		},
	}
}

// JSON encodes the manifest.
func (m Manifest) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return b, nil
}

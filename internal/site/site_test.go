package site

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/JakeFAU/zerovo-site/internal/config"
)

func testSite() config.SiteConfig {
	return config.SiteConfig{
		Name:        "Zerovo Labs",
		BaseURL:     "https://zerovolabs.in",
		Description: "AI Automation & Custom Software Development",
		ThemeColor:  "#0a1929",
	}
}

func TestDefaultCatalogCoversEveryRoute(t *testing.T) {
	t.Parallel()

	cat, err := NewCatalog(DefaultPages()...)
	require.NoError(t, err)
	for _, path := range []string{
		"/", "/about", "/contact", "/projects", "/services",
		"/services/ai-automation", "/services/ai-web-development", "/services/custom-ai",
		"/services/saas-development", "/services/ai-orchestration",
		"/locations/hyderabad", "/privacy", "/terms",
	} {
		p, ok := cat.Lookup(path)
		require.True(t, ok, path)
		require.NotEmpty(t, p.Title, path)
		require.NotEmpty(t, p.Description, path)
	}
	_, ok := cat.Lookup("/about/")
	require.True(t, ok, "trailing slash is ignored")
	_, ok = cat.Lookup("/nope")
	require.False(t, ok)
	require.Len(t, cat.Pages(), 13)
	require.NotEmpty(t, cat.Nav())
}

func TestNewCatalogRejectsBadPages(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog(Page{Path: "about"})
	require.ErrorContains(t, err, "absolute")
	_, err = NewCatalog(Page{Path: "/a"}, Page{Path: "/a"})
	require.ErrorContains(t, err, "twice")
}

func TestSitemap(t *testing.T) {
	t.Parallel()

	cat, err := NewCatalog(DefaultPages()...)
	require.NoError(t, err)
	body, err := cat.Sitemap("https://zerovolabs.in/", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(body, []byte("<?xml")))

	var set urlSet
	require.NoError(t, xml.Unmarshal(body, &set))
	require.Len(t, set.URLs, 13)
	require.Equal(t, "https://zerovolabs.in", set.URLs[0].Loc)
	require.Equal(t, "1.0", set.URLs[0].Priority)
	for _, u := range set.URLs[1:] {
		require.Equal(t, "0.8", u.Priority, u.Loc)
		require.Equal(t, "weekly", u.ChangeFreq)
		require.Equal(t, "2025-03-01T00:00:00Z", u.LastMod)
	}
}

func TestManifest(t *testing.T) {
	t.Parallel()

	body, err := NewManifest(testSite()).JSON()
	require.NoError(t, err)
	require.Equal(t, "Zerovo Labs", gjson.GetBytes(body, "short_name").String())
	require.Equal(t, "#0a1929", gjson.GetBytes(body, "background_color").String())
	require.Equal(t, "standalone", gjson.GetBytes(body, "display").String())
	require.Equal(t, "/static/icon.svg", gjson.GetBytes(body, "icons.0.src").String())
}

func TestRendererPage(t *testing.T) {
	t.Parallel()

	cat, err := NewCatalog(DefaultPages()...)
	require.NoError(t, err)
	r, err := NewRenderer()
	require.NoError(t, err)
	page, _ := cat.Lookup("/services/custom-ai")

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, View{
		Site:            testSite(),
		Page:            page,
		Nav:             cat.Nav(),
		ShowLoader:      true,
		LoaderStreamURL: "/loader/stream",
		Scheduling:      SchedulingView{Namespace: "30min", Link: "ravi-zerovo/30min"},
		Year:            2025,
	}))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	require.Equal(t, "Custom AI Solutions | Zerovo Labs", doc.Find("title").Text())
	require.Equal(t, "/loader/stream", doc.Find("#loader").AttrOr("data-stream", ""))
	require.Equal(t, 1, doc.Find(`script[src="/static/loader.js"]`).Length())
	require.Equal(t, 2, doc.Find("[data-consultation=30min]").Length())
	require.Equal(t, len(page.Sections)+1, doc.Find(".animate-on-scroll").Length())
	require.Equal(t, 1, doc.Find("#scheduling-modal[hidden]").Length())
}

func TestRendererOmitsLoaderWhenHidden(t *testing.T) {
	t.Parallel()

	cat, err := NewCatalog(DefaultPages()...)
	require.NoError(t, err)
	r, err := NewRenderer()
	require.NoError(t, err)
	page, _ := cat.Lookup("/privacy")

	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, View{Site: testSite(), Page: page}))
	require.NotContains(t, buf.String(), `id="loader"`)
	require.NotContains(t, buf.String(), "data-consultation")
}

func TestRendererNotFound(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.NotFound(&buf, View{
		Site: testSite(),
		Page: Page{Title: "Not found"},
		Path: "/missing<script>",
	}))
	require.Contains(t, buf.String(), "Page not found")
	require.NotContains(t, buf.String(), "/missing<script>")
}

func TestStaticHandler(t *testing.T) {
	t.Parallel()

	h := StaticHandler()
	for _, name := range []string{"site.css", "loader.js", "reveal.js", "scheduling.js", "icon.svg"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/"+name, nil))
		require.Equal(t, http.StatusOK, rec.Code, name)
		require.NotZero(t, rec.Body.Len(), name)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/reveal.js", nil))
	require.True(t, strings.Contains(rec.Body.String(), "threshold: 0.1"))

	// A new booking link replaces the iframe rather than keeping the old one.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/scheduling.js", nil))
	require.Contains(t, rec.Body.String(), `existing.getAttribute("src") !== st.iframeUrl`)
	require.Contains(t, rec.Body.String(), "frameBox.replaceChildren()")
}

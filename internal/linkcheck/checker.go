// Package linkcheck crawls a running site from its sitemap and reports links
// that do not resolve.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/metrics"
)

const sitemapPath = "/sitemap.xml"

// ErrEmptySitemap is returned when the sitemap resolves but lists nothing.
var ErrEmptySitemap = errors.New("linkcheck: sitemap lists no pages")

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Parallelism int
	Timeout     time.Duration
	// Transport overrides the HTTP transport; tests point it at httptest servers.
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Result is the outcome of one checked URL. Status is zero when the request
// never produced a response.
type Result struct {
	URL      string        `json:"url"`
	Status   int           `json:"status"`
	Referrer string        `json:"referrer,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Broken reports whether the link failed.
func (r Result) Broken() bool {
	return r.Error != "" || r.Status < 200 || r.Status >= 400
}

// Report summarizes a crawl.
type Report struct {
	Base     string   `json:"base"`
	Results  []Result `json:"results"`
	External int      `json:"external"`
	// Blocked lists sitemap pages that robots.txt disallows for the checker.
	Blocked []string `json:"blocked,omitempty"`
}

// Broken returns the failed results.
func (r Report) Broken() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Broken() {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every checked link resolved and no listed page is
// hidden from crawlers.
func (r Report) OK() bool {
	return len(r.Broken()) == 0 && len(r.Blocked) == 0
}

// Checker walks sitemap.xml, every page it lists and every same-site link
// those pages reference. Linked pages are checked but not crawled further.
type Checker struct {
	cfg Config
}

// New builds a Checker with defaults for unset fields.
func New(cfg Config) *Checker {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = newHTTPTransport()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	metrics.Init()
	return &Checker{cfg: cfg}
}

type crawl struct {
	ctx    context.Context
	logger *zap.Logger
	origin *url.URL

	mu        sync.Mutex
	referrers map[string]string
	started   map[string]time.Time
	results   map[string]Result
	external  map[string]struct{}
	pages     map[string]struct{}
}

// Run crawls baseURL. Sitemap entries are rewritten onto baseURL's origin so a
// local or staging instance can be checked against its production sitemap.
func (c *Checker) Run(ctx context.Context, baseURL string) (Report, error) {
	origin, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || origin.Host == "" || (origin.Scheme != "http" && origin.Scheme != "https") {
		return Report{}, fmt.Errorf("linkcheck: invalid base url %q", baseURL)
	}
	origin.Path, origin.RawQuery, origin.Fragment = "", "", ""

	cr := &crawl{
		ctx:       ctx,
		logger:    c.cfg.Logger,
		origin:    origin,
		referrers: map[string]string{},
		started:   map[string]time.Time{},
		results:   map[string]Result{},
		external:  map[string]struct{}{},
		pages:     map[string]struct{}{},
	}
	collector, err := c.buildCollector(cr)
	if err != nil {
		return Report{}, err
	}

	sitemapURL := origin.String() + sitemapPath
	done := make(chan error, 1)
	go func() {
		err := collector.Visit(sitemapURL)
		collector.Wait()
		done <- err
	}()

	// Requests carry ctx, so cancellation drains the queue quickly; waiting
	// keeps callbacks from racing the report.
	if err := <-done; err != nil {
		return Report{}, fmt.Errorf("linkcheck visit %s: %w", sitemapURL, err)
	}
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("linkcheck canceled: %w", err)
	}

	report := cr.report()
	if len(report.Results) == 1 && report.Results[0].URL == sitemapURL && !report.Results[0].Broken() {
		return report, ErrEmptySitemap
	}
	report.Blocked = c.auditRobots(ctx, origin, cr.sitemapPages())
	return report, nil
}

func (c *Checker) buildCollector(cr *crawl) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.StdlibContext(cr.ctx),
		colly.AllowedDomains(cr.origin.Hostname()),
		colly.Async(true),
		colly.MaxDepth(3),
	)
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.WithTransport(c.cfg.Transport)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: c.cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("set collector limits: %w", err)
	}

	collector.OnRequest(func(r *colly.Request) {
		cr.mu.Lock()
		cr.started[r.URL.String()] = time.Now()
		cr.mu.Unlock()
	})
	collector.OnXML("//urlset/url/loc", func(e *colly.XMLElement) {
		target := cr.rebase(strings.TrimSpace(e.Text))
		if target != "" {
			cr.mu.Lock()
			cr.pages[target] = struct{}{}
			cr.mu.Unlock()
		}
		cr.follow(e.Request, target)
	})
	collector.OnHTML("html", func(e *colly.HTMLElement) {
		// Links on linked pages are not followed.
		if e.Request.Depth >= 3 {
			return
		}
		e.DOM.Find("a[href], link[href], script[src], img[src]").Each(func(_ int, s *goquery.Selection) {
			ref, ok := s.Attr("href")
			if !ok {
				ref, _ = s.Attr("src")
			}
			cr.follow(e.Request, e.Request.AbsoluteURL(ref))
		})
	})
	collector.OnResponse(func(r *colly.Response) {
		cr.record(r.Request, r.StatusCode, nil)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Request == nil {
			return
		}
		cr.record(r.Request, r.StatusCode, err)
	})
	return collector, nil
}

// rebase moves a sitemap location onto the crawl origin.
func (cr *crawl) rebase(loc string) string {
	u, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	u.Scheme = cr.origin.Scheme
	u.Host = cr.origin.Host
	return u.String()
}

func (cr *crawl) follow(from *colly.Request, target string) {
	if target == "" {
		return
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return
	}
	u.Fragment = ""
	target = u.String()
	if u.Host != cr.origin.Host {
		cr.mu.Lock()
		cr.external[target] = struct{}{}
		cr.mu.Unlock()
		return
	}

	cr.mu.Lock()
	if _, seen := cr.referrers[target]; !seen {
		cr.referrers[target] = from.URL.String()
	}
	cr.mu.Unlock()

	if err := from.Visit(target); err != nil && !isExpectedVisitError(err) {
		cr.logger.Debug("link visit skipped", zap.String("url", target), zap.Error(err))
	}
}

func (cr *crawl) record(req *colly.Request, status int, err error) {
	key := req.URL.String()
	res := Result{URL: key, Status: status}
	if err != nil && (status == 0 || status < 400) {
		res.Error = err.Error()
	}

	cr.mu.Lock()
	if start, ok := cr.started[key]; ok {
		res.Duration = time.Since(start)
	}
	res.Referrer = cr.referrers[key]
	cr.results[key] = res
	cr.mu.Unlock()

	metrics.ObserveLinkCheck(key, status)
	if res.Broken() {
		cr.logger.Warn("broken link",
			zap.String("url", key),
			zap.Int("status", status),
			zap.String("referrer", res.Referrer),
			zap.Error(err),
		)
	}
}

func (cr *crawl) report() Report {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	results := make([]Result, 0, len(cr.results))
	for _, res := range cr.results {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].URL < results[j].URL })
	return Report{Base: cr.origin.String(), Results: results, External: len(cr.external)}
}

func (cr *crawl) sitemapPages() []string {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	pages := make([]string, 0, len(cr.pages))
	for page := range cr.pages {
		pages = append(pages, page)
	}
	sort.Strings(pages)
	return pages
}

func isExpectedVisitError(err error) bool {
	var already *colly.AlreadyVisitedError
	return errors.As(err, &already) ||
		errors.Is(err, colly.ErrMaxDepth) ||
		errors.Is(err, colly.ErrForbiddenDomain)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

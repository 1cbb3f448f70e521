package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/logging"
	"github.com/JakeFAU/zerovo-site/internal/metrics"
	"github.com/JakeFAU/zerovo-site/internal/reveal"
	"github.com/JakeFAU/zerovo-site/internal/session"
	"github.com/JakeFAU/zerovo-site/internal/site"
)

const loaderStreamPath = "/loader/stream"

type requestIDKey struct{}

func withRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, reqID)
}

func requestIDFrom(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey{}).(string)
	return reqID
}

// page renders a catalog page, or the 404 page for unknown paths. Pages are
// rendered into a buffer so reveal targets can be annotated before anything
// is written.
func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	pg, found := s.catalog.Lookup(r.URL.Path)
	status := http.StatusOK
	if !found {
		status = http.StatusNotFound
		pg = site.Page{
			Path:        r.URL.Path,
			Title:       "Page not found",
			Description: "The page you are looking for does not exist.",
		}
	}

	serverReveal := reveal.NeedsServerReveal(r)
	// The session flag is only consumed when the loader can actually play.
	eligible := found && s.cfg.Loader.Enabled && !serverReveal
	decision := session.Unknown
	if eligible {
		decision = session.Resolve(r.Context())
	}
	showLoader := decision == session.Show
	metrics.ObserveLoaderDecision(loaderDecisionLabel(decision, eligible))

	view := site.View{
		Site:            s.cfg.Site,
		Page:            pg,
		Nav:             s.catalog.Nav(),
		Path:            pg.Path,
		CanonicalURL:    canonicalURL(s.cfg.Site.BaseURL, pg.Path),
		ShowLoader:      showLoader,
		LoaderStreamURL: loaderStreamPath,
		Scheduling: site.SchedulingView{
			Namespace: s.cfg.Scheduling.DefaultNamespace,
			Link:      s.cfg.Scheduling.DefaultLink,
		},
		RequestID: requestIDFrom(r.Context()),
		Year:      s.clock.Now().Year(),
	}

	var rendered bytes.Buffer
	var err error
	if found {
		err = s.renderer.Page(&rendered, view)
	} else {
		err = s.renderer.NotFound(&rendered, view)
	}
	if err != nil {
		logger.Error("page render failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	res, err := reveal.Annotate(&rendered, &out, serverReveal)
	if err != nil {
		logger.Error("reveal annotate failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	logger.Debug("page rendered",
		zap.String("path", pg.Path),
		zap.Bool("loader", showLoader),
		zap.Int("reveal_targets", res.Targets),
		zap.Int("revealed", res.Revealed),
	)

	if found {
		metrics.ObservePageView(pg.Path)
	} else {
		metrics.ObservePageView("not_found")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(out.Bytes()); err != nil {
		logger.Debug("page write failed", zap.Error(err))
	}
}

func loaderDecisionLabel(d session.Decision, eligible bool) string {
	if !eligible {
		return "suppressed"
	}
	return d.String()
}

func canonicalURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "/" {
		return base
	}
	return base + path
}

func (s *Server) sitemap(w http.ResponseWriter, r *http.Request) {
	body, err := s.catalog.Sitemap(s.cfg.Site.BaseURL, s.clock.Now())
	if err != nil {
		logging.FromContext(r.Context()).Error("sitemap build failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build sitemap")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if _, err := w.Write(body); err != nil {
		logging.FromContext(r.Context()).Debug("sitemap write failed", zap.Error(err))
	}
}

func (s *Server) manifest(w http.ResponseWriter, r *http.Request) {
	body, err := site.NewManifest(s.cfg.Site).JSON()
	if err != nil {
		logging.FromContext(r.Context()).Error("manifest build failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build manifest")
		return
	}
	w.Header().Set("Content-Type", "application/manifest+json")
	if _, err := w.Write(body); err != nil {
		logging.FromContext(r.Context()).Debug("manifest write failed", zap.Error(err))
	}
}

func (s *Server) robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /api/\n\nSitemap: %s\n",
		canonicalURL(s.cfg.Site.BaseURL, "/sitemap.xml"))
	if _, err := w.Write([]byte(body)); err != nil {
		logging.FromContext(r.Context()).Debug("robots write failed", zap.Error(err))
	}
}

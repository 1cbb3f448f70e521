package linkcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// auditRobots returns the pages robots.txt hides from the checker's user
// agent. A robots.txt that cannot be fetched or parsed blocks nothing.
func (c *Checker) auditRobots(ctx context.Context, origin *url.URL, pages []string) []string {
	if len(pages) == 0 {
		return nil
	}
	data, err := c.loadRobots(ctx, origin)
	if err != nil {
		c.cfg.Logger.Warn("robots fetch failed; skipping audit", zap.String("host", origin.Host), zap.Error(err))
		return nil
	}
	agent := c.cfg.UserAgent
	if agent == "" {
		agent = "*"
	}

	var blocked []string
	for _, page := range pages {
		u, err := url.Parse(page)
		if err != nil {
			continue
		}
		path := u.EscapedPath()
		if path == "" {
			path = "/"
		}
		if !data.TestAgent(path, agent) {
			c.cfg.Logger.Warn("sitemap page disallowed by robots.txt", zap.String("url", page))
			blocked = append(blocked, page)
		}
	}
	return blocked
}

func (c *Checker) loadRobots(ctx context.Context, origin *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := *origin
	robotsURL.Path = "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	client := &http.Client{Transport: c.cfg.Transport, Timeout: c.cfg.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.cfg.Logger.Debug("failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

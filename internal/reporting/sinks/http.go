package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// HTTPSink posts each sample to a remote metrics collection endpoint.
type HTTPSink struct {
	url       string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// NewHTTPSink targets url. A nil client gets a 10s timeout default.
func NewHTTPSink(url, userAgent string, client *http.Client, logger *zap.Logger) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSink{url: url, userAgent: userAgent, client: client, logger: logger}
}

// Consume posts samples one at a time and stops at the first failure.
func (s *HTTPSink) Consume(ctx context.Context, batch []metricstore.Sample) error {
	for _, sample := range batch {
		if err := s.post(ctx, sample); err != nil {
			return err
		}
	}
	return nil
}

func (s *HTTPSink) post(ctx context.Context, sample metricstore.Sample) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build collector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sample %s: %w", sample.ID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("collector rejected sample %s: status %d", sample.ID, resp.StatusCode)
	}
	s.logger.Debug("sample delivered", zap.String("id", sample.ID), zap.String("url", s.url))
	return nil
}

// Close implements reporting.Sink.
func (s *HTTPSink) Close(context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

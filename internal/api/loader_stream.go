package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/loader"
	"github.com/JakeFAU/zerovo-site/internal/logging"
	"github.com/JakeFAU/zerovo-site/internal/metrics"
)

// loaderStream drives one loading animation and streams each frame as a
// server-sent "frame" event. The stream ends after the unmount frame or when
// the client goes away.
func (s *Server) loaderStream(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	rc := http.NewResponseController(w)
	// The server-wide write timeout would cut long animations short.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Debug("clear write deadline failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncLoaderStreams()
	defer metrics.DecLoaderStreams()

	drv := loader.New(loader.Config{
		FrameInterval: s.cfg.Loader.FrameInterval(),
		HoldDelay:     s.cfg.Loader.HoldDelay(),
		UnmountDelay:  s.cfg.Loader.UnmountDelay(),
		MaxTicks:      s.cfg.Loader.MaxStreamTicks,
	})
	err := drv.Run(r.Context(), func(f loader.Frame) error {
		payload, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		if _, err := fmt.Fprintf(w, "event: frame\ndata: %s\n\n", payload); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if err := rc.Flush(); err != nil {
			return fmt.Errorf("flush frame: %w", err)
		}
		return nil
	})
	switch {
	case err == nil:
		logger.Debug("loader stream finished")
	case r.Context().Err() != nil:
		logger.Debug("loader stream abandoned by client")
	default:
		logger.Warn("loader stream failed", zap.Error(err))
	}
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/logging"
	"github.com/JakeFAU/zerovo-site/internal/metrics"
	"github.com/JakeFAU/zerovo-site/internal/scheduling"
)

const maxOpenBody = 4 << 10

var (
	namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	linkPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*$`)
)

type openRequest struct {
	Link string `json:"link"`
}

// schedulingController resolves the caller's controller for the namespace in
// the URL, writing the error response itself when it cannot.
func (s *Server) schedulingController(w http.ResponseWriter, r *http.Request) (*scheduling.Controller, bool) {
	ns := chi.URLParam(r, "namespace")
	if !namespacePattern.MatchString(ns) {
		writeError(w, http.StatusBadRequest, "invalid namespace")
		return nil, false
	}
	sid, err := s.registry.SessionID(w, r)
	if err != nil {
		logging.FromContext(r.Context()).Error("scheduling session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start scheduling session")
		return nil, false
	}
	return s.registry.Get(sid, ns), true
}

// schedulingStatus handles GET /api/scheduling/{namespace}.
func (s *Server) schedulingStatus(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.schedulingController(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

// schedulingOpen handles POST /api/scheduling/{namespace}/open. The body is
// optional; {"link": "user/event"} switches the booking link.
func (s *Server) schedulingOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOpenBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Link != "" && !linkPattern.MatchString(req.Link) {
		writeError(w, http.StatusBadRequest, "invalid link")
		return
	}
	ctrl, ok := s.schedulingController(w, r)
	if !ok {
		return
	}
	st := ctrl.Open(r.Context(), req.Link)
	metrics.ObserveSchedulingAction("open", st.State.String())
	writeJSON(w, http.StatusOK, st)
}

// schedulingClose handles POST /api/scheduling/{namespace}/close.
func (s *Server) schedulingClose(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.schedulingController(w, r)
	if !ok {
		return
	}
	st := ctrl.Close()
	metrics.ObserveSchedulingAction("close", st.State.String())
	writeJSON(w, http.StatusOK, st)
}

// schedulingRetry handles POST /api/scheduling/{namespace}/retry.
func (s *Server) schedulingRetry(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.schedulingController(w, r)
	if !ok {
		return
	}
	st := ctrl.Retry(r.Context())
	metrics.ObserveSchedulingAction("retry", st.State.String())
	writeJSON(w, http.StatusOK, st)
}

// schedulingRendered handles POST /api/scheduling/{namespace}/rendered, sent
// by the browser once the iframe has loaded. It returns 409 when the widget is
// not loaded.
func (s *Server) schedulingRendered(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.schedulingController(w, r)
	if !ok {
		return
	}
	if err := ctrl.RenderComplete(r.Context()); err != nil {
		if errors.Is(err, scheduling.ErrNotLoaded) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		logging.FromContext(r.Context()).Error("render complete failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record render")
		return
	}
	st := ctrl.Status()
	metrics.ObserveSchedulingAction("rendered", st.State.String())
	writeJSON(w, http.StatusOK, st)
}

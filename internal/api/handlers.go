package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dep2p/go-reachability/internal/core/reachability"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/lib/urlutil"
	"github.com/dep2p/go-reachability/pkg/types"
)

// ============================================================================
//                              响应结构
// ============================================================================

// HostView 单个观察者的快照
type HostView struct {
	ID                 string              `json:"id"`
	Host               string              `json:"host"`
	Determined         bool                `json:"determined"`
	Status             types.NetworkStatus `json:"status"`
	Flags              uint32              `json:"flags"`
	FlagNames          string              `json:"flag_names"`
	Reachable          bool                `json:"reachable"`
	ConnectionRequired bool                `json:"connection_required"`
}

// observeRequest POST /v1/hosts 请求体，Host 与 URL 二选一
type observeRequest struct {
	Host string `json:"host,omitempty"`
	URL  string `json:"url,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func viewOf(o pkgif.ReachabilityObserver) HostView {
	flags, _ := o.Flags()
	return HostView{
		ID:                 o.ID(),
		Host:               o.HostName(),
		Determined:         o.HasNetworkAvailabilityBeenDetermined(),
		Status:             o.NetworkStatus(),
		Flags:              uint32(flags),
		FlagNames:          flags.String(),
		Reachable:          o.IsNetworkReachable(),
		ConnectionRequired: o.IsConnectionRequired(),
	}
}

// ============================================================================
//                              处理器
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"hosts":  len(s.service.Observers()),
	})
}

func (s *Server) handleListHosts(w http.ResponseWriter, _ *http.Request) {
	observers := s.service.Observers()
	views := make([]HostView, 0, len(observers))
	for _, o := range observers {
		views = append(views, viewOf(o))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetHost(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	o, ok := s.service.Lookup(host)
	if !ok {
		writeError(w, http.StatusNotFound, "host not observed: "+host)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(o))
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	var req observeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var (
		o   pkgif.ReachabilityObserver
		err error
	)
	switch {
	case strings.TrimSpace(req.URL) != "":
		o, err = s.service.ObserveURL(req.URL)
	default:
		o, err = s.service.Observe(req.Host)
	}
	if err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(o))
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	if err := s.service.Release(host); err != nil {
		writeError(w, statusOf(err), err.Error())
		return
	}
	if s.collector != nil {
		s.collector.Forget(reachability.HostKey(host))
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusOf 错误到 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrEmptyHostName),
		errors.Is(err, urlutil.ErrNoHost),
		errors.Is(err, urlutil.ErrNotHTTP):
		return http.StatusBadRequest
	case errors.Is(err, reachability.ErrUnknownHost):
		return http.StatusNotFound
	case errors.Is(err, reachability.ErrServiceClosed):
		return http.StatusServiceUnavailable
	}
	var ce *types.ConstructionError
	if errors.As(err, &ce) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ============================================================================
//                              输出
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("写响应失败", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

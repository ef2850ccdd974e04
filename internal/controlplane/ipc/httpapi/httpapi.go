// Package httpapi serves the control plane's HTTP/SSE surface: a
// per-Gateway configuration fetch, an SSE change-notification stream, and
// a static-response body fetch, fronted by a liveness probe -- one handler
// method per route on a gorilla/mux router, with .Methods() restricting
// verbs.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/ipc"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/metrics"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/role"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/signalbus"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/staticresponses"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/wellknown"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
)

// Problem is an RFC 7807 problem-details document. The request's trace id
// is echoed as the Instance identifier.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance"`
}

const problemContentType = "application/problem+json"

func writeProblem(w http.ResponseWriter, traceID string, status int, title, detail string) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: traceID,
	})
}

// Server wires the IPC store, event bus, and static-response cache onto an
// http.Handler. Every handler method recovers a Gateway ref from its mux
// path variables; nothing here resolves names against the cluster -- the
// ref either has a document in store or it doesn't.
type Server struct {
	store    ipc.Reader
	bus      *ipc.Bus
	cache    *staticresponses.Cache
	checker  healthz.Checker
	redirect *Redirect

	keepAliveInterval time.Duration
	log               *slog.Logger
}

// Redirect carries what a Redundant replica needs to point a data-plane
// client at the current primary instead of answering 404 for state it has
// not (yet) computed itself: the role signal and the lease holder's pod IP
// published by the role controller.
type Redirect struct {
	Role      signalbus.Receiver[role.Role]
	PrimaryIP signalbus.Receiver[string]
	Port      int
}

// New builds a Server. checker backs the liveness endpoint; pass
// health.AlwaysHealthy if no cluster client is wired yet.
func New(log *slog.Logger, store ipc.Reader, bus *ipc.Bus, cache *staticresponses.Cache, checker healthz.Checker, keepAliveInterval time.Duration) *Server {
	return &Server{
		store:             store,
		bus:               bus,
		cache:             cache,
		checker:           checker,
		keepAliveInterval: keepAliveInterval,
		log:               log.With("component", "ipc-httpapi"),
	}
}

// WithRedirect enables redirect-to-primary behavior: when this replica is
// Redundant, the primary's pod IP is known, and a configuration lookup
// misses locally, the client is redirected to the primary rather than told
// 404. Readers operate in all roles, so this only fires on a local miss --
// a Redundant replica whose own pipeline has already computed the document
// serves it directly.
func (s *Server) WithRedirect(r Redirect) *Server {
	s.redirect = &r
	return s
}

// redirectTarget resolves the URL a missed lookup should be redirected to,
// if redirect-to-primary is enabled and currently applicable.
func (s *Server) redirectTarget(path string) (string, bool) {
	if s.redirect == nil {
		return "", false
	}
	current, ok := s.redirect.Role.TryGet()
	if !ok || current != role.Redundant {
		return "", false
	}
	ip, ok := s.redirect.PrimaryIP.TryGet()
	if !ok || ip == "" {
		return "", false
	}
	return fmt.Sprintf("http://%s:%d%s", ip, s.redirect.Port, path), true
}

// Handler builds the gorilla/mux router for this server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ipc/namespaces/{ns}/gateways/{name}/configuration", s.handleConfiguration).Methods(http.MethodGet)
	r.HandleFunc("/ipc/namespaces/{ns}/gateways/{name}/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/ipc/namespaces/{ns}/gateways/{name}/static_responses/{filter_id}", s.handleStaticResponse).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	return r
}

func gatewayRef(r *http.Request) objects.Ref {
	vars := mux.Vars(r)
	return objects.Ref{Group: wellknown.GatewayAPIGroup, Kind: wellknown.GatewayKind, Namespace: vars["ns"], Name: vars["name"]}
}

func traceID(r *http.Request) string {
	if id := r.Header.Get("X-Trace-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// podName recovers the caller's self-reported pod_name query parameter.
// It is recorded for telemetry only and never affects response content.
func podName(r *http.Request) string {
	return r.URL.Query().Get("pod_name")
}

func recordRequest(route string, status int) {
	class := fmt.Sprintf("%dxx", status/100)
	metrics.IPCRequestsTotal.WithLabelValues(route, class).Inc()
}

// handleConfiguration implements GET .../configuration.
func (s *Server) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	trace := traceID(r)
	ref := gatewayRef(r)
	doc, ok := s.store.GetConfiguration(ref)
	if !ok {
		if target, redirect := s.redirectTarget(r.URL.RequestURI()); redirect {
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			recordRequest("configuration", http.StatusTemporaryRedirect)
			return
		}
		writeProblem(w, trace, http.StatusNotFound, "gateway configuration not found", ref.String())
		recordRequest("configuration", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("X-Trace-Id", trace)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
	recordRequest("configuration", http.StatusOK)
	s.log.Debug("served configuration", "gateway", ref, "pod", podName(r), "trace", trace)
}

// handleEvents implements GET .../events, an SSE stream of
// Gateway::ConfigurationUpdate / Gateway::Deleted events scoped to one
// Gateway ref. It ends cleanly -- closing the response without an error --
// on subscriber overflow, client disconnect, or server shutdown.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	trace := traceID(r)
	ref := gatewayRef(r)
	if !s.store.Exists(ref) {
		writeProblem(w, trace, http.StatusNotFound, "unknown gateway", ref.String())
		recordRequest("events", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, trace, http.StatusInternalServerError, "streaming unsupported", "")
		recordRequest("events", http.StatusInternalServerError)
		return
	}

	sub := s.bus.NamedGatewayEvents(ref)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Trace-Id", trace)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	recordRequest("events", http.StatusOK)
	s.log.Debug("event stream opened", "gateway", ref, "pod", podName(r), "trace", trace)

	ctx := r.Context()
	ticker := time.NewTicker(s.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Lagged():
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !sub.Matches(ev) {
				continue
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev ipc.Event) error {
	payload, err := json.Marshal(struct {
		Group     string `json:"group"`
		Kind      string `json:"kind"`
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
	}{ev.Ref.Group, ev.Ref.Kind, ev.Ref.Namespace, ev.Ref.Name})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
	return err
}

// handleStaticResponse implements GET .../static_responses/{filter_id}.
func (s *Server) handleStaticResponse(w http.ResponseWriter, r *http.Request) {
	trace := traceID(r)
	ref := gatewayRef(r)
	filterID := mux.Vars(r)["filter_id"]
	if filterID == "" {
		writeProblem(w, trace, http.StatusBadRequest, "missing filter id", "")
		recordRequest("static_responses", http.StatusBadRequest)
		return
	}
	if !s.store.Exists(ref) {
		writeProblem(w, trace, http.StatusNotFound, "unknown gateway", ref.String())
		recordRequest("static_responses", http.StatusNotFound)
		return
	}
	body, ok := s.cache.Get(objects.UniqueID(filterID))
	if !ok {
		writeProblem(w, trace, http.StatusNotFound, "unknown or undecodable static response filter", filterID)
		recordRequest("static_responses", http.StatusNotFound)
		return
	}
	if body.ContentType != "" {
		w.Header().Set("Content-Type", body.ContentType)
	}
	w.Header().Set("X-Trace-Id", trace)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes)
	recordRequest("static_responses", http.StatusOK)
	s.log.Debug("served static response body", "gateway", ref, "filter", filterID, "pod", podName(r), "trace", trace)
}

// handleLiveness implements GET /health/live, returning a problem-details
// body on both outcomes.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	trace := traceID(r)
	if err := s.checker(r); err != nil {
		s.log.Warn("liveness check failed", "error", err)
		writeProblem(w, trace, http.StatusServiceUnavailable, "DOWN", err.Error())
		recordRequest("health_live", http.StatusServiceUnavailable)
		return
	}
	writeProblem(w, trace, http.StatusOK, "UP", "")
	recordRequest("health_live", http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, traceID(r), http.StatusNotFound, "route not found", r.URL.Path)
	recordRequest("unmatched", http.StatusNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, traceID(r), http.StatusMethodNotAllowed, "method not allowed", r.Method+" "+r.URL.Path)
	recordRequest("unmatched", http.StatusMethodNotAllowed)
}

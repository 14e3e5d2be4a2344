// Package server exposes navigation queries over HTTP.
//
// HTML routes return the same fragments as the presentation layer; the
// /api routes return JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Benny93/wayfinder-go/internal/navigation"
	"github.com/Benny93/wayfinder-go/internal/pathfinding"
	"github.com/Benny93/wayfinder-go/internal/present"
	"github.com/Benny93/wayfinder-go/internal/storage"
)

// DefaultSearchLimit caps /api/locations results when no limit is given.
const DefaultSearchLimit = 50

// Handler serves navigation queries.
type Handler struct {
	nav   *navigation.Navigator
	store storage.StorageBackend
}

// NewHandler creates a handler. store is optional; without it location
// search falls back to substring matching over the loaded graph.
func NewHandler(nav *navigation.Navigator, store storage.StorageBackend) *Handler {
	return &Handler{nav: nav, store: store}
}

// RegisterRoutes adds the handler's routes to router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/path", h.PathFragment).Methods("GET")
	router.HandleFunc("/closest", h.ClosestFragment).Methods("GET")
	router.HandleFunc("/healthz", h.Health).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/locations", h.Locations).Methods("GET")
	api.HandleFunc("/routes/{location}", h.Routes).Methods("GET")
	api.HandleFunc("/path", h.Path).Methods("GET")
	api.HandleFunc("/closest", h.Closest).Methods("GET")
}

// NewRouter returns a router serving h.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return router
}

// Index renders the full page. start/end or from query parameters embed a result.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats := h.nav.Stats()
	data := present.PageData{Locations: stats.Locations, Routes: stats.Routes}

	var err error
	if q.Get("start") != "" && q.Get("end") != "" {
		data.Result, err = present.ShortestPathResponse(h.nav, q.Get("start"), q.Get("end"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if q.Get("from") != "" {
		data.ClosestResult, err = present.ClosestResponse(h.nav, q.Get("from"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	page, err := present.Page(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, page)
}

// PathFragment renders the shortest path response fragment.
func (h *Handler) PathFragment(w http.ResponseWriter, r *http.Request) {
	start, end, ok := requirePair(w, r)
	if !ok {
		return
	}
	out, err := present.ShortestPathResponse(h.nav, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, out)
}

// ClosestFragment renders the closest destination response fragment.
func (h *Handler) ClosestFragment(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if strings.TrimSpace(from) == "" {
		writeError(w, http.StatusBadRequest, "missing parameter: from")
		return
	}
	out, err := present.ClosestResponse(h.nav, from)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeHTML(w, out)
}

// Health reports liveness and graph size.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.nav.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"locations": stats.Locations,
		"routes":    stats.Routes,
	})
}

// Locations lists locations, optionally filtered by the q parameter.
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	names, err := h.searchLocations(r.Context(), q, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": names,
		"count":     len(names),
	})
}

func (h *Handler) searchLocations(ctx context.Context, q string, limit int) ([]string, error) {
	names := []string{}
	if q == "" {
		all := h.nav.Locations()
		if len(all) > limit {
			all = all[:limit]
		}
		return append(names, all...), nil
	}

	if h.store != nil {
		results, err := h.store.SearchLocations(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			names = append(names, r.Name)
		}
		return names, nil
	}

	needle := strings.ToLower(q)
	for _, name := range h.nav.Locations() {
		if strings.Contains(strings.ToLower(name), needle) {
			names = append(names, name)
			if len(names) == limit {
				break
			}
		}
	}
	return names, nil
}

// Routes lists the routes leaving a location.
func (h *Handler) Routes(w http.ResponseWriter, r *http.Request) {
	location := mux.Vars(r)["location"]
	legs, err := h.nav.RoutesFrom(location)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	if legs == nil {
		legs = []navigation.Leg{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location": location,
		"routes":   legs,
	})
}

// Path returns the shortest route as JSON.
func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	start, end, ok := requirePair(w, r)
	if !ok {
		return
	}
	route, err := h.nav.Route(start, end)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// Closest returns the closest destination from a comma separated list of starts.
func (h *Handler) Closest(w http.ResponseWriter, r *http.Request) {
	starts := present.SplitStarts(r.URL.Query().Get("from"))
	if len(starts) == 0 {
		writeError(w, http.StatusBadRequest, "missing parameter: from")
		return
	}
	dest, err := h.nav.ClosestDestinationFromAll(starts)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dest)
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requirePair(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "missing parameter: start and end are required")
		return "", "", false
	}
	return start, end, true
}

// statusFor maps a query error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, navigation.ErrNoStartLocations):
		return http.StatusBadRequest
	case errors.Is(err, pathfinding.ErrNodeNotFound), errors.Is(err, navigation.ErrEmptyGraph):
		return http.StatusNotFound
	case errors.Is(err, pathfinding.ErrNoPathExists):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeQueryError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), present.Message(err))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTML(w http.ResponseWriter, body template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytmproxy/internal/catalog"
	"github.com/desertthunder/ytmproxy/internal/resolver"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

// Resolver resolves a video identifier to a playable URL.
type Resolver interface {
	Resolve(ctx context.Context, videoID string) (*resolver.Result, error)
}

// CacheStats reports the number of cached resolutions.
type CacheStats interface {
	Len() int
}

// Deps are the collaborators wired into the router by [NewRouter].
type Deps struct {
	Resolver Resolver
	Catalog  catalog.Catalog
	Cache    CacheStats
	Logger   *log.Logger
	Config   shared.ServerConfig
}

// NewRouter builds the full API: middleware chain, stream routes, catalog routes, root and health.
func NewRouter(deps Deps) *BasicRouter {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(RequestID(), Logging(logger), Recover(logger), CORS(deps.Config.CORSOrigins))
	if deps.Config.RateLimit > 0 {
		router.Use(NewRateLimiter(deps.Config.RateLimit, deps.Config.RateBurst).Middleware())
	}

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ytmproxy is running"})
	}))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := 0
		if deps.Cache != nil {
			entries = deps.Cache.Len()
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cache_entries": entries})
	}))

	router.Handler(NewStreamHandler(deps.Resolver, logger))
	router.Handler(NewCatalogHandler(deps.Catalog, logger))
	return router
}

// StreamHandler serves /stream and /stream-url.
type StreamHandler struct {
	resolver Resolver
	logger   *log.Logger
}

// NewStreamHandler creates a [StreamHandler].
func NewStreamHandler(r Resolver, logger *log.Logger) *StreamHandler {
	return &StreamHandler{resolver: r, logger: logger}
}

func (h *StreamHandler) Routes() []string {
	return []string{"/stream", "/stream-url"}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	videoID, ok := requireParam(w, r, "videoId")
	if !ok {
		return
	}

	res, err := h.resolver.Resolve(r.Context(), videoID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, shared.ErrEmptyIdentifier) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("stream resolution failed", "video_id", videoID, "request_id", RequestIDFrom(r.Context()), "err", err)
		writeError(w, status, err.Error())
		return
	}

	if r.URL.Path == "/stream-url" {
		writeJSON(w, http.StatusOK, map[string]string{"url": res.URL})
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.URL, http.StatusFound)
}

// CatalogHandler serves the metadata endpoints.
type CatalogHandler struct {
	catalog catalog.Catalog
	logger  *log.Logger
}

// NewCatalogHandler creates a [CatalogHandler].
func NewCatalogHandler(c catalog.Catalog, logger *log.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, logger: logger}
}

func (h *CatalogHandler) Routes() []string {
	return []string{"/search", "/watch", "/album", "/playlist", "/lyrics"}
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	switch r.URL.Path {
	case "/search":
		h.search(w, r)
	case "/watch":
		h.watch(w, r)
	case "/album":
		h.album(w, r)
	case "/playlist":
		h.playlist(w, r)
	case "/lyrics":
		h.lyrics(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

// search never fails upstream: lookup errors, including an unknown filter, degrade to an empty list.
func (h *CatalogHandler) search(w http.ResponseWriter, r *http.Request) {
	query, ok := requireParam(w, r, "query")
	if !ok {
		return
	}
	filter := r.URL.Query().Get("filter")
	limit, ok := intParam(w, r, "limit", catalog.DefaultSearchLimit)
	if !ok {
		return
	}

	results, err := h.catalog.Search(r.Context(), query, filter, limit)
	if err != nil {
		h.logger.Warn("search failed", "query", query, "filter", filter, "err", err)
		writeData(w, []any{})
		return
	}
	writeData(w, results)
}

func (h *CatalogHandler) watch(w http.ResponseWriter, r *http.Request) {
	videoID, ok := requireParam(w, r, "videoId")
	if !ok {
		return
	}

	wp, err := h.catalog.Watch(r.Context(), videoID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, wp)
}

func (h *CatalogHandler) album(w http.ResponseWriter, r *http.Request) {
	browseID, ok := requireParam(w, r, "browseId")
	if !ok {
		return
	}

	album, err := h.catalog.Album(r.Context(), browseID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, album)
}

func (h *CatalogHandler) playlist(w http.ResponseWriter, r *http.Request) {
	browseID, ok := requireParam(w, r, "browseId")
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", catalog.DefaultPlaylistLimit)
	if !ok {
		return
	}

	playlist, err := h.catalog.Playlist(r.Context(), browseID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeData(w, playlist)
}

// lyrics never fails: a missing page is reported as null data.
func (h *CatalogHandler) lyrics(w http.ResponseWriter, r *http.Request) {
	browseID, ok := requireParam(w, r, "browseId")
	if !ok {
		return
	}

	lyrics, err := h.catalog.Lyrics(r.Context(), browseID)
	if err != nil {
		h.logger.Debug("lyrics unavailable", "browse_id", browseID, "err", err)
		writeData(w, nil)
		return
	}
	writeData(w, lyrics)
}

func (h *CatalogHandler) fail(w http.ResponseWriter, err error) {
	h.logger.Warn("catalog lookup failed", "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing required query parameter %q", name))
		return "", false
	}
	return v, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query parameter %q must be a positive integer", name))
		return 0, false
	}
	return n, true
}

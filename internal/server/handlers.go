// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/mgrsgrid/internal/controller"
	"github.com/woozymasta/mgrsgrid/internal/geo"
	"github.com/woozymasta/mgrsgrid/internal/metrics"
	"github.com/woozymasta/mgrsgrid/internal/mgrs"

	"github.com/rs/zerolog/log"
)

const (
	etagCap = 64
	maxZoom = 24

	contentGeoJSON = "application/geo+json"
	contentYAML    = "application/yaml"
)

// Routes registers every handler on a new mux.
func (s *ServerContext) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/grid", s.HandleGrid)
	mux.HandleFunc("/api/grid/", s.HandleGridTile)
	mux.HandleFunc("/api/zones", s.HandleZones)
	mux.HandleFunc("/api/cache", s.HandleCache)
	mux.HandleFunc("/api/cache/clear", s.HandleCacheClear)
	mux.HandleFunc("/grid/", s.HandleGridFile)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// HandleGrid evaluates ?bbox=w,s,e,n&zoom=z and returns the visible features.
func (s *ServerContext) HandleGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	b, err := geo.ParseBounds(q.Get("bbox"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	zoom, err := parseZoom(q.Get("zoom"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.serveViewport(w, r, b, zoom)
}

// HandleGridTile serves /api/grid/{z}/{x}/{y}, using the slippy tile as viewport.
func (s *ServerContext) HandleGridTile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Path: /api/grid/{z}/{x}/{y}[.geojson]
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 5 {
		http.NotFound(w, r)
		return
	}

	z, errZ := parseZoom(parts[2])
	x, errX := strconv.Atoi(parts[3])
	y, errY := strconv.Atoi(strings.TrimSuffix(parts[4], ".geojson"))
	if errZ != nil || errX != nil || errY != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}
	if n := 1 << z; x < 0 || y < 0 || x >= n || y >= n {
		http.Error(w, "tile out of range", http.StatusBadRequest)
		return
	}

	s.serveViewport(w, r, geo.TileBounds(z, x, y), z)
}

func (s *ServerContext) serveViewport(w http.ResponseWriter, r *http.Request, b geo.Bounds, zoom int) {
	view, err := s.Engine.Viewport(r.Context(), b, zoom)
	if err != nil {
		log.Error().Err(err).Str("bbox", b.String()).Msg("Viewport evaluation failed")
		http.Error(w, "grid engine unavailable", http.StatusServiceUnavailable)
		return
	}

	format := r.URL.Query().Get("format")
	data, err := geo.Marshal(view.FeatureCollection(), format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if format == "yaml" {
		w.Header().Set("Content-Type", contentYAML)
	} else {
		w.Header().Set("Content-Type", contentGeoJSON)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Grid-Pending", strconv.Itoa(view.Stats.Pending))
	_, _ = w.Write(data)
}

// HandleZones serves the zone boundary set as GeoJSON.
func (s *ServerContext) HandleZones(w http.ResponseWriter, r *http.Request) {
	if match := r.Header.Get("If-None-Match"); match == s.zonesETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", contentGeoJSON)
	w.Header().Set("ETag", s.zonesETag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.zonesJSON)
}

type cacheResponse struct {
	Stats   controller.Stats       `json:"stats"`
	Entries []controller.EntryInfo `json:"entries"`
}

// HandleCache reports cache statistics and per-key state.
func (s *ServerContext) HandleCache(w http.ResponseWriter, r *http.Request) {
	v := s.Engine.View()

	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(cacheResponse{Stats: v.Stats, Entries: v.Entries})
}

// HandleCacheClear empties the cache.
func (s *ServerContext) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v, err := s.Engine.Clear(r.Context())
	if err != nil {
		http.Error(w, "grid engine unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cacheResponse{Stats: v.Stats, Entries: v.Entries})
}

// gridFileTypes maps the extensions gridgen writes to their content type.
var gridFileTypes = map[string]string{
	".geojson": contentGeoJSON,
	".yaml":    contentYAML,
}

// HandleGridFile serves pre-generated files: /grid/{zone}/{precision}.geojson
// or .yaml.
func (s *ServerContext) HandleGridFile(w http.ResponseWriter, r *http.Request) {
	if s.GridDir == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}

	// Only real zone keys and precisions, to prevent path probing.
	zone, file := parts[1], parts[2]
	ref, err := mgrs.Parse(zone)
	if err != nil || ref.Square != "" || ref.ID() != zone {
		http.NotFound(w, r)
		return
	}
	ext := filepath.Ext(file)
	contentType, ok := gridFileTypes[ext]
	if !ok {
		http.NotFound(w, r)
		return
	}
	precision, err := strconv.Atoi(strings.TrimSuffix(file, ext))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := mgrs.DigitsForPrecision(precision); err != nil {
		http.NotFound(w, r)
		return
	}

	if !s.serveFile(w, r, filepath.Join(s.GridDir, zone, file), contentType) {
		http.NotFound(w, r)
	}
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

func parseZoom(s string) (int, error) {
	if s == "" {
		return 0, errors.New("zoom is required")
	}
	z, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("zoom must be an integer")
	}
	if z < 0 || z > maxZoom {
		return 0, errors.New("zoom out of range")
	}
	return z, nil
}

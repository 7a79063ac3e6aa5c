package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/compendium/internal/models"
	"go.uber.org/zap"
)

// SearchHit is one search result as returned by the API.
type SearchHit struct {
	ID       string          `json:"id"`
	Kind     models.Kind     `json:"kind"`
	Category models.Category `json:"category"`
	Name     models.Text     `json:"name"`
	Snippet  string          `json:"snippet"`
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Field   string      `json:"field,omitempty"`
	Total   int         `json:"total"`
	Results []SearchHit `json:"results"`
}

// EntryList is the body of GET /api/v1/entries.
type EntryList struct {
	Total   int            `json:"total"`
	Entries []models.Entry `json:"entries"`
}

// ReferencesResponse is the body of GET /api/v1/entries/{id}/references.
type ReferencesResponse struct {
	ID         string              `json:"id"`
	References []models.Resolution `json:"references"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	kinds := make(map[models.Kind]int)
	for _, spec := range s.registry.Kinds() {
		counts, _ := s.registry.CountsByKind(spec.Kind)
		kinds[spec.Kind] = counts.Total()
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"module":              s.registry.Name(),
		"entries":             s.registry.Len(),
		"kinds":               kinds,
		"dangling_references": len(s.registry.Dangling()),
	})
}

func (s *Server) handleIDs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"ids": s.registry.AllIDs()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	fieldName := r.URL.Query().Get("field")
	s.logger.Debug("search request", zap.String("query", q), zap.String("field", fieldName))

	var entries []models.Entry
	if fieldName != "" {
		field, ok := models.ParseField(fieldName)
		if !ok {
			s.respondError(w, http.StatusBadRequest, "unknown field: "+fieldName)
			return
		}
		entries = s.registry.SearchField(field, q)
	} else {
		entries = s.registry.Search(q)
	}

	resp := SearchResponse{Query: q, Field: fieldName, Total: len(entries), Results: make([]SearchHit, 0, len(entries))}
	for _, e := range entries {
		resp.Results = append(resp.Results, SearchHit{
			ID:       e.ID,
			Kind:     e.Kind,
			Category: e.Category,
			Name:     e.Name,
			Snippet:  s.registry.Snippet(e.ID, q, s.snippetLength),
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListEntries lists all entries, or those matching ?category= (repeatable
// or comma separated) and ?keyword=. Both filters together intersect.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var categories []models.Category
	for _, v := range query["category"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, models.Category(c))
			}
		}
	}
	keyword := query.Get("keyword")

	var entries []models.Entry
	switch {
	case len(categories) > 0 && keyword != "":
		tagged := make(map[string]bool)
		for _, e := range s.registry.FilterByKeyword(keyword) {
			tagged[e.ID] = true
		}
		entries = []models.Entry{}
		for _, e := range s.registry.FilterByCategory(categories...) {
			if tagged[e.ID] {
				entries = append(entries, e)
			}
		}
	case len(categories) > 0:
		entries = s.registry.FilterByCategory(categories...)
	case keyword != "":
		entries = s.registry.FilterByKeyword(keyword)
	default:
		entries = s.registry.All()
	}
	s.respondJSON(w, http.StatusOK, EntryList{Total: len(entries), Entries: entries})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.registry.GetByID(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	refs, ok := s.registry.ResolveByID(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.respondJSON(w, http.StatusOK, ReferencesResponse{ID: id, References: refs})
}

// handleRelated lists linked entries in both directions, optionally filtered by
// ?relationship= and ?type=.
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()
	related, ok := s.registry.RelatedByID(id, query.Get("relationship"), query.Get("type"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.respondJSON(w, http.StatusOK, ReferencesResponse{ID: id, References: related})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"counts": s.registry.CountsByCategory()})
		return
	}
	counts, ok := s.registry.CountsByKind(models.Kind(kind))
	if !ok {
		s.respondError(w, http.StatusBadRequest, "unknown kind: "+kind)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"kind": kind, "counts": counts})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

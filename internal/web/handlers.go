package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/lozio/venues/internal/logging"
	"github.com/lozio/venues/internal/store"
)

// Review submission limits, in characters.
const (
	MaxAuthorLen = 80
	MaxTitleLen  = 120
	MaxBodyLen   = 4000
)

// maxRequestBytes caps JSON request bodies.
const maxRequestBytes = 64 << 10

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "degraded",
			"database": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": "ok",
	})
}

// handleListVenues lists published venues.
//
// Query parameters: city, category, featured (true/false), q (name or
// description search), limit, offset.
func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.VenueFilter{
		City:     strings.TrimSpace(q.Get("city")),
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
		Search:   strings.TrimSpace(q.Get("q")),
		Limit:    parseIntParam(r, "limit", store.DefaultLimit),
		Offset:   parseIntParam(r, "offset", 0),
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, r, invalid("featured must be true or false"))
			return
		}
		f.Featured = &featured
	}

	venues, err := s.store.ListVenues(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venues)
}

// handleGetVenue returns one venue.
func (s *Server) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetVenue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleListReviews returns the approved reviews of a venue, newest first.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetVenue(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	reviews, err := s.store.ListReviews(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// reviewRequest is the body of a review submission.
type reviewRequest struct {
	Author    string `json:"author"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	VisitedOn string `json:"visitedOn"`
}

// validate trims the request and checks it against the submission rules.
func (req *reviewRequest) validate() error {
	req.Author = strings.TrimSpace(req.Author)
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	req.VisitedOn = strings.TrimSpace(req.VisitedOn)

	switch {
	case req.Author == "":
		return invalid("author is required")
	case req.Body == "":
		return invalid("body is required")
	case req.Rating < 1 || req.Rating > 5:
		return invalid("rating must be between 1 and 5")
	case utf8.RuneCountInString(req.Author) > MaxAuthorLen:
		return invalid(fmt.Sprintf("author must be at most %d characters", MaxAuthorLen))
	case utf8.RuneCountInString(req.Title) > MaxTitleLen:
		return invalid(fmt.Sprintf("title must be at most %d characters", MaxTitleLen))
	case utf8.RuneCountInString(req.Body) > MaxBodyLen:
		return invalid(fmt.Sprintf("body must be at most %d characters", MaxBodyLen))
	}

	if req.VisitedOn != "" {
		visited, err := time.Parse(time.DateOnly, req.VisitedOn)
		if err != nil {
			return invalid("visitedOn must be a date in YYYY-MM-DD format")
		}
		if visited.After(time.Now()) {
			return invalid("visitedOn must be a past date")
		}
	}
	return nil
}

// handleCreateReview stores a visitor review for moderation.
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, r, err)
		return
	}

	review, err := s.store.CreateReview(r.Context(), store.NewReview{
		VenueID:   chi.URLParam(r, "id"),
		Author:    req.Author,
		Rating:    req.Rating,
		Title:     req.Title,
		Body:      req.Body,
		VisitedOn: req.VisitedOn,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("review submitted",
		"review_id", review.ID,
		"venue_id", review.VenueID,
		"rating", review.Rating,
	)
	writeJSON(w, http.StatusCreated, review)
}

// handleListArticles returns published articles, newest first.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.ListArticles(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid(fmt.Sprintf("invalid request body: must be at most %d bytes", tooLarge.Limit))
		}
		return invalid("invalid request body: " + err.Error())
	}
	return nil
}

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

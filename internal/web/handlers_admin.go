package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lozio/venues/internal/core/entities"
	"github.com/lozio/venues/internal/logging"
	"github.com/lozio/venues/internal/store"
)

// handleAdminCreateVenue adds a venue outside the CSV import.
func (s *Server) handleAdminCreateVenue(w http.ResponseWriter, r *http.Request) {
	var v entities.Venue
	if err := decodeJSON(w, r, &v); err != nil {
		respondError(w, r, err)
		return
	}

	v.ID = strings.TrimSpace(v.ID)
	v.Name = strings.TrimSpace(v.Name)
	v.Category = strings.ToLower(strings.TrimSpace(v.Category))
	switch {
	case v.ID == "":
		respondError(w, r, invalid("id is required"))
		return
	case v.Name == "":
		respondError(w, r, invalid("name is required"))
		return
	case v.Rating < 0 || v.Rating > 5:
		respondError(w, r, invalid("rating must be between 0 and 5"))
		return
	}
	if v.Slug == "" {
		v.Slug = entities.NormalizeSlug(v.Name)
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}

	if err := s.store.CreateVenue(r.Context(), v); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("venue created", "venue_id", v.ID)
	writeJSON(w, http.StatusCreated, v)
}

// handleAdminListReviews lists reviews by moderation status (default pending).
func (s *Server) handleAdminListReviews(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = store.StatusPending
	}
	if !store.ValidStatus(status) {
		respondError(w, r, invalid(fmt.Sprintf("invalid status %q", status)))
		return
	}

	reviews, err := s.store.ListReviewsByStatus(r.Context(), status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// handleAdminSetStatus returns a handler moving a review to status.
func (s *Server) handleAdminSetStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		review, err := s.store.SetReviewStatus(r.Context(), id, status)
		if err != nil {
			respondError(w, r, err)
			return
		}

		logging.FromContext(r.Context()).Info("review moderated",
			"review_id", id,
			"status", status,
		)
		writeJSON(w, http.StatusOK, review)
	}
}

// handleAdminDeleteReview removes a review.
func (s *Server) handleAdminDeleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteReview(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("review deleted", "review_id", id)
	w.WriteHeader(http.StatusNoContent)
}

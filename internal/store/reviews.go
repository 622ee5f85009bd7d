package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lozio/venues/internal/core"
)

// Review moderation states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ValidStatus reports whether s is a known review status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Review is a stored review with its moderation state.
type Review struct {
	ID        string    `json:"id"`
	VenueID   string    `json:"venueId"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	VisitedOn string    `json:"visitedOn,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewReview is a visitor submission.
type NewReview struct {
	VenueID   string
	Author    string
	Rating    int
	Title     string
	Body      string
	VisitedOn string
}

const reviewColumns = `id, venue_id, COALESCE(author, ''), rating, COALESCE(title, ''),
	COALESCE(body, ''), COALESCE(to_char(visited_on, 'YYYY-MM-DD'), ''), status, created_at`

// reviewFields lists the scan destinations in reviewColumns order.
func reviewFields(r *Review) []any {
	return []any{&r.ID, &r.VenueID, &r.Author, &r.Rating, &r.Title, &r.Body,
		&r.VisitedOn, &r.Status, &r.CreatedAt}
}

func scanReview(row pgx.Row) (Review, error) {
	var r Review
	err := row.Scan(reviewFields(&r)...)
	return r, err
}

func (s *Store) queryReviews(ctx context.Context, q string, args ...any) ([]Review, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ListReviews returns the approved reviews of a venue, newest first.
func (s *Store) ListReviews(ctx context.Context, venueID string) ([]Review, error) {
	reviews, err := s.queryReviews(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE venue_id = $1 AND status = $2 ORDER BY created_at DESC",
		venueID, StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

const insertReview = `
	INSERT INTO reviews (id, venue_id, author, rating, title, body, visited_on, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + reviewColumns

// reviewArgs lists the insertReview arguments for a new pending review.
func reviewArgs(id string, in NewReview) []any {
	return []any{id, in.VenueID, core.ToPgText(in.Author), in.Rating,
		core.ToPgText(in.Title), core.ToPgText(in.Body), core.ToPgDate(in.VisitedOn),
		StatusPending}
}

// CreateReview stores a submission as pending. The venue must exist.
func (s *Store) CreateReview(ctx context.Context, in NewReview) (Review, error) {
	row := s.pool.QueryRow(ctx, insertReview, reviewArgs(uuid.NewString(), in)...)
	r, err := scanReview(row)
	if err != nil {
		return Review{}, classify(err, "review")
	}
	return r, nil
}

// ListReviewsByStatus returns reviews in a moderation state, oldest first.
func (s *Store) ListReviewsByStatus(ctx context.Context, status string) ([]Review, error) {
	reviews, err := s.queryReviews(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE status = $1 ORDER BY created_at",
		status)
	if err != nil {
		return nil, fmt.Errorf("list %s reviews: %w", status, err)
	}
	return reviews, nil
}

// SetReviewStatus moves a review to status and returns it.
func (s *Store) SetReviewStatus(ctx context.Context, id, status string) (Review, error) {
	row := s.pool.QueryRow(ctx,
		"UPDATE reviews SET status = $2 WHERE id = $1 RETURNING "+reviewColumns,
		id, status)
	r, err := scanReview(row)
	if err != nil {
		return Review{}, classify(err, "review")
	}
	return r, nil
}

// DeleteReview removes a review.
func (s *Store) DeleteReview(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("review %w", ErrNotFound)
	}
	return nil
}

package entities

import (
	"context"
	"errors"

	"github.com/lozio/venues/internal/core"
)

// Review is a visitor's rating of a venue.
type Review struct {
	ID        string `json:"id"`
	VenueID   string `json:"venueId"`
	Author    string `json:"author"`
	Rating    int    `json:"rating"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	VisitedOn string `json:"visitedOn"`
	Approved  bool   `json:"approved"`
}

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:          "reviews",
			Label:        "Reviews",
			Source:       "reviews.csv",
			Output:       "reviews.ts",
			ConstName:    "reviews",
			IDColumn:     "id",
			FilterColumn: "approved",
			Table:        "reviews",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Required: true},
			{Name: "venue_id", Key: "venueId", Required: true},
			{Name: "author"},
			{Name: "rating", Type: core.FieldInt},
			{Name: "title"},
			{Name: "body"},
			{Name: "visited_on", Key: "visitedOn"},
			{Name: "approved", Type: core.FieldBool},
		},
		Build:  BuildReview,
		ID:     func(rec any) string { return rec.(Review).ID },
		Upsert: upsertReview,
	})
}

// BuildReview maps one reviews.csv row.
func BuildReview(row core.Row) (any, error) {
	r := Review{
		ID:        row.Text("id"),
		VenueID:   row.Text("venue_id"),
		Author:    row.Text("author"),
		Rating:    row.Int("rating", 0),
		Title:     row.Text("title"),
		Body:      row.Text("body"),
		VisitedOn: row.Text("visited_on"),
		Approved:  row.Bool("approved"),
	}
	if r.VenueID == "" {
		return nil, errors.New("venue_id is required")
	}
	return r, nil
}

const upsertReviewSQL = `
INSERT INTO reviews (id, venue_id, author, rating, title, body, visited_on, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	venue_id = EXCLUDED.venue_id, author = EXCLUDED.author,
	rating = EXCLUDED.rating, title = EXCLUDED.title, body = EXCLUDED.body,
	visited_on = EXCLUDED.visited_on, status = EXCLUDED.status
RETURNING (xmax = 0)`

func upsertReview(ctx context.Context, db core.DBTX, rec any) (bool, error) {
	r := rec.(Review)
	status := "pending"
	if r.Approved {
		status = "approved"
	}
	var inserted bool
	err := db.QueryRow(ctx, upsertReviewSQL,
		r.ID, r.VenueID, core.ToPgText(r.Author), r.Rating,
		core.ToPgText(r.Title), core.ToPgText(r.Body),
		core.ToPgDate(r.VisitedOn), status,
	).Scan(&inserted)
	return inserted, err
}

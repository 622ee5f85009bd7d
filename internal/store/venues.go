package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/lozio/venues/internal/core"
	"github.com/lozio/venues/internal/core/entities"
)

// DefaultLimit and MaxLimit bound list queries.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// VenueFilter narrows ListVenues. Zero values mean "any".
type VenueFilter struct {
	City     string
	Category string
	Featured *bool
	Search   string
	Limit    int
	Offset   int
}

const venueColumns = `id, name, COALESCE(slug, ''), COALESCE(category, ''),
	COALESCE(address, ''), COALESCE(city, ''), COALESCE(region, ''),
	COALESCE(country, ''), lat, lng, rating, price_level, COALESCE(phone, ''),
	COALESCE(website, ''), COALESCE(instagram, ''), COALESCE(description, ''),
	tags, featured, published`

// venueFields lists the scan destinations in venueColumns order.
func venueFields(v *entities.Venue) []any {
	return []any{&v.ID, &v.Name, &v.Slug, &v.Category, &v.Address, &v.City,
		&v.Region, &v.Country, &v.Lat, &v.Lng, &v.Rating, &v.PriceLevel,
		&v.Phone, &v.Website, &v.Instagram, &v.Description, &v.Tags,
		&v.Featured, &v.Published}
}

func scanVenue(row pgx.Row) (entities.Venue, error) {
	var v entities.Venue
	err := row.Scan(venueFields(&v)...)
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return v, err
}

// ListVenues returns published venues matching f, featured first then by name.
func (s *Store) ListVenues(ctx context.Context, f VenueFilter) ([]entities.Venue, error) {
	q, args := venueQuery(f)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	venues := []entities.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func venueQuery(f VenueFilter) (string, []any) {
	wb := newWhereBuilder()
	wb.AddRaw("published")
	if f.City != "" {
		wb.AddExpr("lower(city) = lower($%d)", f.City)
	}
	wb.Add("lower(category)", strings.ToLower(f.Category))
	if f.Featured != nil {
		wb.AddExpr("featured = $%d", *f.Featured)
	}
	wb.AddSearch(f.Search, "name", "city", "description")

	where, args := wb.Build()
	limit, offset := clampPage(f.Limit, f.Offset)
	q := fmt.Sprintf("SELECT %s FROM venues%s ORDER BY featured DESC, name LIMIT $%d OFFSET $%d",
		venueColumns, where, wb.NextArgIndex(), wb.NextArgIndex()+1)
	args = append(args, limit, offset)

	return q, args
}

// GetVenue returns a published venue by id.
func (s *Store) GetVenue(ctx context.Context, id string) (entities.Venue, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+venueColumns+" FROM venues WHERE id = $1 AND published", id)
	v, err := scanVenue(row)
	if err != nil {
		return entities.Venue{}, classify(err, "venue")
	}
	return v, nil
}

const insertVenue = `
	INSERT INTO venues (id, name, slug, category, address, city, region,
		country, lat, lng, rating, price_level, phone, website, instagram,
		description, tags, featured, published)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

// CreateVenue inserts v. ErrConflict is returned when the id is taken.
func (s *Store) CreateVenue(ctx context.Context, v entities.Venue) error {
	_, err := s.pool.Exec(ctx, insertVenue, venueArgs(v)...)
	return classify(err, "venue "+v.ID)
}

// venueArgs lists the insertVenue arguments.
func venueArgs(v entities.Venue) []any {
	return []any{v.ID, v.Name, core.ToPgText(v.Slug), core.ToPgText(v.Category),
		core.ToPgText(v.Address), core.ToPgText(v.City), core.ToPgText(v.Region),
		core.ToPgText(v.Country), core.ToPgFloat8(v.Lat), core.ToPgFloat8(v.Lng),
		v.Rating, v.PriceLevel, core.ToPgText(v.Phone), core.ToPgText(v.Website),
		core.ToPgText(v.Instagram), core.ToPgText(v.Description),
		nonNil(v.Tags), v.Featured, v.Published}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

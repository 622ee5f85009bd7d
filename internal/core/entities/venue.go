package entities

import (
	"context"
	"errors"

	"github.com/lozio/venues/internal/core"
)

// Venue is a bar listed in the directory.
type Venue struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Rating      float64  `json:"rating"`
	PriceLevel  int      `json:"priceLevel"`
	Phone       string   `json:"phone"`
	Website     string   `json:"website"`
	Instagram   string   `json:"instagram"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Featured    bool     `json:"featured"`
	Published   bool     `json:"published"`
}

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:          "venues",
			Label:        "Venues",
			Source:       "venues.csv",
			Output:       "venues.ts",
			ConstName:    "venues",
			IDColumn:     "id",
			FilterColumn: "published",
			Table:        "venues",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Required: true},
			{Name: "name", Required: true},
			{Name: "slug"},
			{Name: "category", Type: core.FieldLower},
			{Name: "address"},
			{Name: "city"},
			{Name: "region"},
			{Name: "country"},
			{Name: "lat", Type: core.FieldFloat, Omit: true},
			{Name: "lng", Type: core.FieldFloat, Omit: true},
			{Name: "rating", Type: core.FieldFloat},
			{Name: "price_level", Key: "priceLevel", Type: core.FieldInt},
			{Name: "phone"},
			{Name: "website"},
			{Name: "instagram"},
			{Name: "description"},
			{Name: "tags"},
			{Name: "featured", Type: core.FieldBool},
			{Name: "published", Type: core.FieldBool},
		},
		Build:  BuildVenue,
		ID:     func(rec any) string { return rec.(Venue).ID },
		Upsert: upsertVenue,
	})
}

// BuildVenue maps one venues.csv row.
func BuildVenue(row core.Row) (any, error) {
	v := Venue{
		ID:          row.Text("id"),
		Name:        row.Text("name"),
		Slug:        row.Text("slug"),
		Category:    row.Lower("category"),
		Address:     row.Text("address"),
		City:        row.Text("city"),
		Region:      row.Text("region"),
		Country:     row.Text("country"),
		Lat:         row.FloatPtr("lat"),
		Lng:         row.FloatPtr("lng"),
		Rating:      row.Float("rating", 0),
		PriceLevel:  row.Int("price_level", 0),
		Phone:       row.Text("phone"),
		Website:     row.Text("website"),
		Instagram:   row.Text("instagram"),
		Description: row.Text("description"),
		Tags:        SplitTags(row.Raw("tags")),
		Featured:    row.Bool("featured"),
		Published:   row.Bool("published"),
	}
	if v.Name == "" {
		return nil, errors.New("name is required")
	}
	if v.Slug == "" {
		v.Slug = NormalizeSlug(v.Name)
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return v, nil
}

const upsertVenueSQL = `
INSERT INTO venues (id, name, slug, category, address, city, region, country,
	lat, lng, rating, price_level, phone, website, instagram, description,
	tags, featured, published)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, slug = EXCLUDED.slug, category = EXCLUDED.category,
	address = EXCLUDED.address, city = EXCLUDED.city, region = EXCLUDED.region,
	country = EXCLUDED.country, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
	rating = EXCLUDED.rating, price_level = EXCLUDED.price_level,
	phone = EXCLUDED.phone, website = EXCLUDED.website,
	instagram = EXCLUDED.instagram, description = EXCLUDED.description,
	tags = EXCLUDED.tags, featured = EXCLUDED.featured,
	published = EXCLUDED.published, updated_at = now()
RETURNING (xmax = 0)`

func upsertVenue(ctx context.Context, db core.DBTX, rec any) (bool, error) {
	v := rec.(Venue)
	var inserted bool
	err := db.QueryRow(ctx, upsertVenueSQL,
		v.ID, v.Name, core.ToPgText(v.Slug), core.ToPgText(v.Category),
		core.ToPgText(v.Address), core.ToPgText(v.City), core.ToPgText(v.Region),
		core.ToPgText(v.Country), core.ToPgFloat8(v.Lat), core.ToPgFloat8(v.Lng),
		v.Rating, v.PriceLevel, core.ToPgText(v.Phone), core.ToPgText(v.Website),
		core.ToPgText(v.Instagram), core.ToPgText(v.Description),
		v.Tags, v.Featured, v.Published,
	).Scan(&inserted)
	return inserted, err
}

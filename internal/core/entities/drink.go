package entities

import (
	"context"

	"github.com/lozio/venues/internal/core"
)

// Drink is a rum or cocktail served at a venue.
type Drink struct {
	ID        string   `json:"id"`
	VenueID   string   `json:"venueId"`
	Name      string   `json:"name"`
	Rum       string   `json:"rum"`
	Style     string   `json:"style"`
	Price     *float64 `json:"price,omitempty"`
	ABV       *float64 `json:"abv,omitempty"`
	Signature bool     `json:"signature"`
}

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:       "drinks",
			Label:     "Drinks",
			Source:    "drinks.csv",
			Output:    "drinks.ts",
			ConstName: "drinks",
			IDColumn:  "id",
			Table:     "drinks",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "id", Required: true},
			{Name: "venue_id", Key: "venueId"},
			{Name: "name", Required: true},
			{Name: "rum"},
			{Name: "style", Type: core.FieldLower},
			{Name: "price", Type: core.FieldFloat, Omit: true},
			{Name: "abv", Type: core.FieldFloat, Omit: true},
			{Name: "signature", Type: core.FieldBool},
		},
		Build: func(row core.Row) (any, error) {
			return Drink{
				ID:        row.Text("id"),
				VenueID:   row.Text("venue_id"),
				Name:      row.Text("name"),
				Rum:       row.Text("rum"),
				Style:     row.Lower("style"),
				Price:     row.FloatPtr("price"),
				ABV:       row.FloatPtr("abv"),
				Signature: row.Bool("signature"),
			}, nil
		},
		ID:     func(rec any) string { return rec.(Drink).ID },
		Upsert: upsertDrink,
	})
}

const upsertDrinkSQL = `
INSERT INTO drinks (id, venue_id, name, rum, style, price, abv, signature)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	venue_id = EXCLUDED.venue_id, name = EXCLUDED.name, rum = EXCLUDED.rum,
	style = EXCLUDED.style, price = EXCLUDED.price, abv = EXCLUDED.abv,
	signature = EXCLUDED.signature
RETURNING (xmax = 0)`

func upsertDrink(ctx context.Context, db core.DBTX, rec any) (bool, error) {
	d := rec.(Drink)
	var inserted bool
	err := db.QueryRow(ctx, upsertDrinkSQL,
		d.ID, core.ToPgText(d.VenueID), d.Name, core.ToPgText(d.Rum),
		core.ToPgText(d.Style), core.ToPgFloat8(d.Price), core.ToPgFloat8(d.ABV),
		d.Signature,
	).Scan(&inserted)
	return inserted, err
}

package entities

import (
	"context"

	"github.com/lozio/venues/internal/core"
)

// Article is an editorial post. Articles are keyed by slug.
type Article struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	Excerpt        string   `json:"excerpt"`
	Body           string   `json:"body"`
	Author         string   `json:"author"`
	CoverImage     string   `json:"coverImage"`
	PublishedAt    string   `json:"publishedAt"`
	ReadingMinutes int      `json:"readingMinutes"`
	Tags           []string `json:"tags"`
	Published      bool     `json:"published"`
}

func init() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:          "articles",
			Label:        "Articles",
			Source:       "articles.csv",
			Output:       "articles.ts",
			ConstName:    "articles",
			IDColumn:     "slug",
			FilterColumn: "published",
			Table:        "articles",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "slug", Required: true},
			{Name: "title", Required: true},
			{Name: "excerpt"},
			{Name: "body"},
			{Name: "author"},
			{Name: "cover_image", Key: "coverImage"},
			{Name: "published_at", Key: "publishedAt"},
			{Name: "reading_minutes", Key: "readingMinutes", Type: core.FieldInt},
			{Name: "tags"},
			{Name: "published", Type: core.FieldBool},
		},
		Build: func(row core.Row) (any, error) {
			tags := SplitTags(row.Raw("tags"))
			if tags == nil {
				tags = []string{}
			}
			return Article{
				Slug:           NormalizeSlug(row.Text("slug")),
				Title:          row.Text("title"),
				Excerpt:        row.Text("excerpt"),
				Body:           row.Text("body"),
				Author:         row.Text("author"),
				CoverImage:     row.Text("cover_image"),
				PublishedAt:    row.Text("published_at"),
				ReadingMinutes: row.Int("reading_minutes", 0),
				Tags:           tags,
				Published:      row.Bool("published"),
			}, nil
		},
		ID:     func(rec any) string { return rec.(Article).Slug },
		Upsert: upsertArticle,
	})
}

const upsertArticleSQL = `
INSERT INTO articles (slug, title, excerpt, body, author, cover_image,
	published_at, reading_minutes, tags, published)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (slug) DO UPDATE SET
	title = EXCLUDED.title, excerpt = EXCLUDED.excerpt, body = EXCLUDED.body,
	author = EXCLUDED.author, cover_image = EXCLUDED.cover_image,
	published_at = EXCLUDED.published_at,
	reading_minutes = EXCLUDED.reading_minutes, tags = EXCLUDED.tags,
	published = EXCLUDED.published
RETURNING (xmax = 0)`

func upsertArticle(ctx context.Context, db core.DBTX, rec any) (bool, error) {
	a := rec.(Article)
	var inserted bool
	err := db.QueryRow(ctx, upsertArticleSQL,
		a.Slug, a.Title, core.ToPgText(a.Excerpt), core.ToPgText(a.Body),
		core.ToPgText(a.Author), core.ToPgText(a.CoverImage),
		core.ToPgDate(a.PublishedAt), a.ReadingMinutes, a.Tags, a.Published,
	).Scan(&inserted)
	return inserted, err
}

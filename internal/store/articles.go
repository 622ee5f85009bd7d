package store

import (
	"context"
	"fmt"

	"github.com/lozio/venues/internal/core/entities"
)

const articleColumns = `slug, title, COALESCE(excerpt, ''), COALESCE(body, ''),
	COALESCE(author, ''), COALESCE(cover_image, ''),
	COALESCE(to_char(published_at, 'YYYY-MM-DD'), ''),
	reading_minutes, tags, published`

// articleFields lists the scan destinations in articleColumns order.
func articleFields(a *entities.Article) []any {
	return []any{&a.Slug, &a.Title, &a.Excerpt, &a.Body, &a.Author,
		&a.CoverImage, &a.PublishedAt, &a.ReadingMinutes, &a.Tags, &a.Published}
}

// ListArticles returns published articles, newest first.
func (s *Store) ListArticles(ctx context.Context) ([]entities.Article, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+articleColumns+`
		FROM articles
		WHERE published
		ORDER BY published_at DESC NULLS LAST, slug`)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []entities.Article{}
	for rows.Next() {
		var a entities.Article
		if err := rows.Scan(articleFields(&a)...); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if a.Tags == nil {
			a.Tags = []string{}
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

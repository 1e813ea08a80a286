// Package search ranks the local library against a free-text query.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/evzhu/readtrack/internal/book"
)

type Repository interface {
	GetAll(ctx context.Context) ([]book.Book, error)
}

type Result struct {
	Book  book.Book `json:"book"`
	Score float64   `json:"score"`
}

type Engine struct {
	repo Repository
}

func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Search scores every book against the query terms and returns matches
// ordered by relevance. Title matches outweigh author matches, which
// outweigh hits in the review or description text.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	books, err := e.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(books))
	for _, b := range books {
		score := scoreBook(b, terms)
		if score == 0 {
			continue
		}
		results = append(results, Result{Book: b, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Book.LastReadDate.After(results[j].Book.LastReadDate)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func scoreBook(b book.Book, terms []string) float64 {
	title := strings.ToLower(b.Title)
	author := strings.ToLower(b.Author)
	body := strings.ToLower(b.Review + " " + b.Description)

	var score float64
	for _, term := range terms {
		switch {
		case title == term:
			score += 4
		case strings.Contains(title, term):
			score += 2
		}
		if strings.Contains(author, term) {
			score += 1.5
		}
		if strings.Contains(body, term) {
			score += 0.5
		}
	}
	return score
}

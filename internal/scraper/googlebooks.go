package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evzhu/readtrack/internal/book"
)

// GoogleBooksClient searches the public Google Books volumes API. One
// best-effort request per call; no retry.
type GoogleBooksClient struct {
	client  *http.Client
	baseURL string
	apiKey  string // Optional API key for higher rate limits
}

func NewGoogleBooksClient(apiKey string) *GoogleBooksClient {
	return &GoogleBooksClient{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: "https://www.googleapis.com/books/v1",
		apiKey:  apiKey,
	}
}

type gbSearchResult struct {
	TotalItems int      `json:"totalItems"`
	Items      []gbItem `json:"items"`
}

type gbItem struct {
	ID         string       `json:"id"`
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
}

type gbVolumeInfo struct {
	Title         string       `json:"title"`
	Authors       []string     `json:"authors"`
	Publisher     string       `json:"publisher"`
	PublishedDate string       `json:"publishedDate"`
	Description   string       `json:"description"`
	PageCount     int          `json:"pageCount"`
	Language      string       `json:"language"`
	ImageLinks    gbImageLinks `json:"imageLinks"`
}

type gbImageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}

// Search queries Google Books and maps the volumes into addable books.
func (c *GoogleBooksClient) Search(ctx context.Context, query string, limit int) ([]book.Book, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 40 {
		limit = 40 // Google Books API max
	}

	searchURL := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d&printType=books",
		c.baseURL, url.QueryEscape(query), limit)

	if c.apiKey != "" {
		searchURL += "&key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search Google Books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("Google Books returned status %d", resp.StatusCode)
	}

	var result gbSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	return c.itemsToBooks(result.Items), nil
}

// SearchByISBN fetches a single volume by ISBN.
func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	books, err := c.Search(ctx, fmt.Sprintf("isbn:%s", isbn), 1)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("ISBN not found: %s", isbn)
	}
	return &books[0], nil
}

func (c *GoogleBooksClient) itemsToBooks(items []gbItem) []book.Book {
	books := make([]book.Book, 0, len(items))

	for _, item := range items {
		vi := item.VolumeInfo

		// Skip items without a title
		if vi.Title == "" {
			continue
		}

		author := "Unknown Author"
		if len(vi.Authors) > 0 {
			author = strings.Join(vi.Authors, ", ")
		}

		// Thumbnails come back on the insecure scheme
		cover := strings.Replace(vi.ImageLinks.Thumbnail, "http:", "https:", 1)

		books = append(books, book.Book{
			Title:         vi.Title,
			Author:        author,
			TotalPages:    vi.PageCount,
			Description:   truncate(vi.Description, 300),
			CoverImageURL: cover,
			Language:      vi.Language,
			Status:        book.StatusNotStarted,
			DateAdded:     time.Now(),
		})
	}

	return books
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

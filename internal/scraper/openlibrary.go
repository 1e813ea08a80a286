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

// OpenLibraryClient is the alternative metadata source, mainly used for
// ISBN imports.
type OpenLibraryClient struct {
	client  *http.Client
	baseURL string
}

func NewOpenLibraryClient() *OpenLibraryClient {
	return &OpenLibraryClient{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: "https://openlibrary.org",
	}
}

type olBookData struct {
	Title         string     `json:"title"`
	NumberOfPages int        `json:"number_of_pages"`
	Authors       []olAuthor `json:"authors"`
	Cover         olCover    `json:"cover"`
}

type olAuthor struct {
	Name string `json:"name"`
}

type olCover struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
}

// FetchByISBN looks up one book by ISBN (dashes are tolerated).
func (c *OpenLibraryClient) FetchByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	isbn = strings.ReplaceAll(isbn, "-", "")
	key := "ISBN:" + isbn

	fetchURL := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data", c.baseURL, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, "GET", fetchURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch OpenLibrary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("OpenLibrary returned status %d", resp.StatusCode)
	}

	var result map[string]olBookData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	data, ok := result[key]
	if !ok || data.Title == "" {
		return nil, fmt.Errorf("ISBN not found: %s", isbn)
	}

	author := "Unknown Author"
	if len(data.Authors) > 0 {
		names := make([]string, 0, len(data.Authors))
		for _, a := range data.Authors {
			names = append(names, a.Name)
		}
		author = strings.Join(names, ", ")
	}

	cover := data.Cover.Large
	if cover == "" {
		cover = data.Cover.Medium
	}

	return &book.Book{
		Title:         data.Title,
		Author:        author,
		TotalPages:    data.NumberOfPages,
		CoverImageURL: strings.Replace(cover, "http:", "https:", 1),
		Status:        book.StatusNotStarted,
		DateAdded:     time.Now(),
	}, nil
}

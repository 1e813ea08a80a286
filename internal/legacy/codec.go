// Package legacy handles the predecessor storage format: per-book
// "Key: Value" text blocks grouped under YYYY-MM-DD date keys. New
// writes go through the canonical model; this package only round-trips
// the old blocks and imports them once.
package legacy

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is the decoded field set of one legacy text block. Keys that
// are not part of the canonical label set are preserved verbatim in
// Extra for forward compatibility.
type Record struct {
	Title         string
	Author        string
	TotalPages    int
	CurrentPage   int
	Status        string
	Rating        float64
	Review        string
	Description   string
	CoverImageURL string
	Extra         map[string]string
}

// Encode renders the record in the fixed legacy line format. Every
// canonical label is emitted even when its value is empty.
func Encode(r Record) string {
	lines := []string{
		"Title: " + r.Title,
		"Author: " + r.Author,
		"Total Pages: " + encodeInt(r.TotalPages),
		"Current Page: " + encodeInt(r.CurrentPage),
		"Status: " + r.Status,
		"Rating: " + encodeFloat(r.Rating),
		"Review: " + r.Review,
		"Description: " + r.Description,
		"CoverImageUrl: " + r.CoverImageURL,
	}
	return strings.Join(lines, "\n")
}

// Decode parses a legacy text block. It is total over arbitrary input:
// lines without a colon are skipped, keys match case-insensitively
// (including the historical "Pages" label), and malformed numeric
// values decode to the field's zero value.
func Decode(text string) Record {
	r := Record{}

	for _, line := range strings.Split(text, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch {
		case strings.EqualFold(key, "Title"):
			r.Title = value
		case strings.EqualFold(key, "Author"):
			r.Author = value
		case strings.EqualFold(key, "Total Pages"), strings.EqualFold(key, "Pages"):
			r.TotalPages = decodeInt(value)
		case strings.EqualFold(key, "Current Page"):
			r.CurrentPage = decodeInt(value)
		case strings.EqualFold(key, "Status"):
			r.Status = value
		case strings.EqualFold(key, "Rating"):
			r.Rating = decodeFloat(value)
		case strings.EqualFold(key, "Review"):
			r.Review = value
		case strings.EqualFold(key, "Description"):
			r.Description = value
		case strings.EqualFold(key, "CoverImageUrl"):
			r.CoverImageURL = value
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[key] = value
		}
	}

	return r
}

// Empty reports whether decoding recognized no canonical field worth
// keeping; such blocks are skipped during migration.
func (r Record) Empty() bool {
	return r.Title == "" && r.Author == "" && r.Review == "" && r.Description == "" &&
		r.TotalPages == 0 && r.CurrentPage == 0 && r.Rating == 0 && r.Status == ""
}

func encodeInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func encodeFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func decodeInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func decodeFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// String implements a compact debug form; the wire form is Encode.
func (r Record) String() string {
	return fmt.Sprintf("legacy.Record{Title:%q Author:%q Page:%d/%d}", r.Title, r.Author, r.CurrentPage, r.TotalPages)
}

// Package pagination implements stateless page-number pagination.
//
// Every list endpoint returns the same envelope:
//
//	{"count": 15, "next": "http://host/snippets/?page=2", "previous": null, "results": [...]}
//
// Nothing is remembered between requests: the page number in the query string
// plus the current row count fully determine what a page contains.
package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/snippets-api/internal/apperror"
)

// PageSize is the fixed number of results per page.
const PageSize = 10

// QueryParam is the query-string key holding the 1-based page number.
const QueryParam = "page"

// Page is one bounded slice of an ordered result set.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Request identifies a page by number.
type Request struct {
	Number int
}

// Limit returns the maximum number of rows to fetch.
func (r Request) Limit() int {
	return PageSize
}

// Offset returns the number of rows to skip.
func (r Request) Offset() int {
	return (r.Number - 1) * PageSize
}

// ParseRequest reads the page number from a query string.
// A missing value means page 1; anything that is not a positive integer is
// rejected with "Invalid page.".
func ParseRequest(query url.Values) (Request, error) {
	raw := strings.TrimSpace(query.Get(QueryParam))
	if raw == "" {
		return Request{Number: 1}, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return Request{}, apperror.InvalidPage()
	}
	return Request{Number: n}, nil
}

// NumPages returns the number of pages for count rows. An empty result set
// still has one (empty) page.
func NumPages(count int) int {
	if count <= 0 {
		return 1
	}
	return (count + PageSize - 1) / PageSize
}

// Check rejects a page number past the last page.
func (r Request) Check(count int) error {
	if r.Number > NumPages(count) {
		return apperror.InvalidPage()
	}
	return nil
}

// New assembles the envelope for page r. pageURL is the absolute URL of the
// list endpoint without query string; other query parameters in query are kept
// on the next/previous links.
func New[T any](r Request, count int, results []T, pageURL string, query url.Values) Page[T] {
	if results == nil {
		results = []T{}
	}
	p := Page[T]{
		Count:   count,
		Results: results,
	}
	if r.Number < NumPages(count) {
		link := pageLink(pageURL, query, r.Number+1)
		p.Next = &link
	}
	if r.Number > 1 {
		link := pageLink(pageURL, query, r.Number-1)
		p.Previous = &link
	}
	return p
}

// pageLink builds the URL of page n. Page 1 drops the page parameter entirely.
func pageLink(pageURL string, query url.Values, n int) string {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	if n <= 1 {
		q.Del(QueryParam)
	} else {
		q.Set(QueryParam, strconv.Itoa(n))
	}
	if enc := q.Encode(); enc != "" {
		return pageURL + "?" + enc
	}
	return pageURL
}

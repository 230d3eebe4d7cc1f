// Package pacs resolves viewer URLs for imaging studies. The PACS itself
// is an external system; the engine only hands out links keyed by
// accession number.
package pacs

import (
	"net/url"
	"strings"
)

// Resolver builds viewer URLs for imaging studies.
type Resolver interface {
	ViewerURL(accessionNumber string) string
}

// URLResolver composes viewer URLs from a configured base.
type URLResolver struct {
	baseURL string
}

// NewURLResolver creates a resolver rooted at baseURL.
func NewURLResolver(baseURL string) *URLResolver {
	return &URLResolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// ViewerURL implements Resolver.
func (r *URLResolver) ViewerURL(accessionNumber string) string {
	q := url.Values{}
	q.Set("accession", accessionNumber)
	return r.baseURL + "/viewer?" + q.Encode()
}

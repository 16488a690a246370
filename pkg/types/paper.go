// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Page is one page of a paper's extracted text.
type Page struct {
	// Number is the 1-based page number as it appears in the source PDF.
	Number int `json:"number" yaml:"number"`

	// Text is the extracted text of the page.
	Text string `json:"text" yaml:"text"`
}

// Paper holds metadata and the ordered page text for a loaded paper.
// A Paper is immutable once loaded into a session.
type Paper struct {
	// ID is a slug derived from the paper identifier (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// SourceURL is the URL the paper was discovered at.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date,omitempty" yaml:"date,omitempty"`

	// Source identifies which backend provided the paper (e.g. "arxiv", "local").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// RelevanceScore ranks the paper within a discovery result list.
	RelevanceScore float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// Pages holds the extracted page text in page order. Empty for papers
	// that have been discovered but not yet loaded.
	Pages []Page `json:"pages,omitempty" yaml:"pages,omitempty"`
}

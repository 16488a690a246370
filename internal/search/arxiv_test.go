// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-brain/pkg/types"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
 You Need</title>
    <summary>The dominant sequence transduction models are based on
 complex recurrent networks.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce a new language representation model.</summary>
    <published>2018-10-11T00:50:01Z</published>
    <author><name>Jacob Devlin</name></author>
  </entry>
</feed>`

func withArxivServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	orig := arxivAPIBase
	arxivAPIBase = srv.URL
	t.Cleanup(func() { arxivAPIBase = orig })
}

func TestArxivSearchParsesFeed(t *testing.T) {
	var gotQuery string
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, arxivFeedXML)
	})

	b := &ArxivBackend{Client: http.DefaultClient}
	papers, err := b.Search(context.Background(), "attention transformers",
		types.SearchConfig{MaxResults: 10})
	require.NoError(t, err)
	require.Len(t, papers, 2)

	assert.Contains(t, gotQuery, "search_query=all:attention+transformers")
	assert.Contains(t, gotQuery, "max_results=10")

	first := papers[0]
	assert.Equal(t, "1706.03762", first.ID)
	assert.Equal(t, "Attention Is All You Need", first.Title)
	assert.Equal(t, "arxiv", first.Source)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", first.SourceURL)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, first.Authors)
	assert.Equal(t, 2017, first.Date.Year())
	assert.Contains(t, first.Abstract, "sequence transduction")

	// Position-based scores decay from 1.0.
	assert.Equal(t, 1.0, first.RelevanceScore)
	assert.Less(t, papers[1].RelevanceScore, first.RelevanceScore)
}

func TestArxivSearchHTTPError(t *testing.T) {
	withArxivServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	b := &ArxivBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), "anything", types.SearchConfig{})
	assert.Error(t, err)
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	b := &ArxivBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), "   ", types.SearchConfig{})
	assert.Error(t, err)
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/1706.03762v7", "1706.03762"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/cs/9901002v1", "cs/9901002"},
		{"http://arxiv.org/nothing-here", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractArxivID(tt.in), tt.in)
	}
}

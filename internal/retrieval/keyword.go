package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// document is one indexed source file.
type document struct {
	source string
	text   string
	terms  map[string]int
}

// KeywordRetriever scores documents by query-term overlap. Documents are
// loaded once at startup from a directory; each file is one source.
type KeywordRetriever struct {
	docs []document
}

// NewKeywordRetriever indexes every regular file directly under dir.
func NewKeywordRetriever(dir string) (*KeywordRetriever, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("retrieval: read docs dir: %w", err)
	}

	r := &KeywordRetriever{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("retrieval: read %s: %w", e.Name(), err)
		}
		text := string(data)
		r.docs = append(r.docs, document{
			source: e.Name(),
			text:   text,
			terms:  termFreq(text),
		})
	}
	return r, nil
}

// NewKeywordRetrieverFromDocs builds an index from in-memory documents,
// keyed by source name. Used by tests and embedded corpora.
func NewKeywordRetrieverFromDocs(docs map[string]string) *KeywordRetriever {
	r := &KeywordRetriever{}
	sources := make([]string, 0, len(docs))
	for src := range docs {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		r.docs = append(r.docs, document{
			source: src,
			text:   docs[src],
			terms:  termFreq(docs[src]),
		})
	}
	return r
}

// Retrieve scores every document against the query terms and returns the
// topK best matches. Documents with no overlapping terms are excluded.
func (r *KeywordRetriever) Retrieve(_ context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 3
	}
	queryTerms := termFreq(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	var snippets []Snippet
	for _, d := range r.docs {
		var hits, total int
		for term := range queryTerms {
			if tf, ok := d.terms[term]; ok {
				hits++
				total += tf
			}
		}
		if hits == 0 {
			continue
		}
		// Fraction of query terms matched, weighted slightly by frequency.
		score := float64(hits)/float64(len(queryTerms)) + float64(total)/float64(len(d.terms)+1)
		snippets = append(snippets, Snippet{Source: d.source, Text: d.text, Score: score})
	}

	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].Score > snippets[j].Score
	})
	if len(snippets) > topK {
		snippets = snippets[:topK]
	}
	return snippets, nil
}

func termFreq(text string) map[string]int {
	freq := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		freq[w]++
	}
	return freq
}

package retrieval

import (
	"context"
	"testing"
)

func testCorpus() *KeywordRetriever {
	return NewKeywordRetrieverFromDocs(map[string]string{
		"billing.txt":  "Billing plans and invoices. Invoices are sent monthly and billing questions go to support.",
		"shipping.txt": "Shipping times vary by region. Express shipping arrives in two days.",
		"returns.txt":  "Returns are accepted within thirty days. Refunds follow the returns policy.",
	})
}

func TestRetrieve_RanksByOverlap(t *testing.T) {
	r := testCorpus()

	snippets, err := r.Retrieve(context.Background(), "when do express shipping orders arrive", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(snippets) == 0 {
		t.Fatalf("expected matches")
	}
	if snippets[0].Source != "shipping.txt" {
		t.Fatalf("expected shipping.txt first, got %q", snippets[0].Source)
	}
	for i := 1; i < len(snippets); i++ {
		if snippets[i].Score > snippets[i-1].Score {
			t.Fatalf("expected descending scores, got %v then %v", snippets[i-1].Score, snippets[i].Score)
		}
	}
}

func TestRetrieve_TopKBound(t *testing.T) {
	r := testCorpus()

	// Every document mentions days or billing-adjacent terms.
	snippets, err := r.Retrieve(context.Background(), "billing shipping returns days", 2)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(snippets) > 2 {
		t.Fatalf("expected at most 2 snippets, got %d", len(snippets))
	}
}

func TestRetrieve_NoOverlapReturnsNothing(t *testing.T) {
	r := testCorpus()

	snippets, err := r.Retrieve(context.Background(), "quantum chromodynamics", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("expected no matches, got %d", len(snippets))
	}
}

func TestRetrieve_ShortAndEmptyQueries(t *testing.T) {
	r := testCorpus()

	// Terms under three characters are dropped by the tokenizer.
	snippets, err := r.Retrieve(context.Background(), "a an to", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if snippets != nil {
		t.Fatalf("expected nil for stopword-only query, got %v", snippets)
	}

	snippets, err = r.Retrieve(context.Background(), "", 3)
	if err != nil || snippets != nil {
		t.Fatalf("expected nil for empty query, got %v %v", snippets, err)
	}
}

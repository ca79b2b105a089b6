package domain

import (
	"strings"
	"testing"
)

func TestSnippet_ShortBodyUnchanged(t *testing.T) {
	a := Article{Body: "short body"}
	if got := a.Snippet(); got != "short body" {
		t.Errorf("expected body unchanged, got %q", got)
	}
}

func TestSnippet_ExactLimitUnchanged(t *testing.T) {
	body := strings.Repeat("x", SnippetLimit)
	a := Article{Body: body}
	if got := a.Snippet(); got != body {
		t.Errorf("body of exactly %d chars must not be truncated", SnippetLimit)
	}
}

func TestSnippet_LongBodyTruncated(t *testing.T) {
	body := strings.Repeat("y", SnippetLimit+1)
	a := Article{Body: body}

	got := a.Snippet()
	want := body[:SnippetLimit] + "..."
	if got != want {
		t.Errorf("expected first %d chars plus ellipsis, got %d chars", SnippetLimit, len(got))
	}
}

func TestToSnippet_CarriesMetadata(t *testing.T) {
	a := Article{
		URL:             "https://example.org/a",
		Title:           "Title",
		Body:            "Body",
		PublicationDate: "2025-07-01T10:00:00Z",
		SimilarityScore: 0.87,
	}

	s := a.ToSnippet()
	if s.URL != a.URL || s.Title != a.Title || s.PublicationDate != a.PublicationDate {
		t.Error("snippet must carry article metadata through unchanged")
	}
	if s.SimilarityScore != a.SimilarityScore {
		t.Errorf("expected score %v, got %v", a.SimilarityScore, s.SimilarityScore)
	}
	if s.Snippet != "Body" {
		t.Errorf("expected snippet %q, got %q", "Body", s.Snippet)
	}
}

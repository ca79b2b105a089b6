package domain

// SnippetLimit is the maximum snippet length shown in answer context.
// Existing consumers render exactly the first 200 characters plus an
// ellipsis, so the threshold is part of the API contract.
const SnippetLimit = 200

// Article is one retrieved news article, normalized from the
// backend-native row shape. SimilarityScore always follows the
// "higher is more similar" convention; each store adapter converts
// its native distance metric before returning.
type Article struct {
	URL             string
	Title           string
	Body            string
	PublicationDate string
	SimilarityScore float64
}

// Snippet returns the article body truncated for display: the first
// SnippetLimit characters plus "..." when the body is longer, the body
// unchanged otherwise.
func (a Article) Snippet() string {
	if len(a.Body) > SnippetLimit {
		return a.Body[:SnippetLimit] + "..."
	}
	return a.Body
}

// ContextSnippet is the presentation form of an Article inside an AnswerResult.
type ContextSnippet struct {
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	PublicationDate string  `json:"publication_date"`
	SimilarityScore float64 `json:"similarity_score"`
	Snippet         string  `json:"snippet"`
}

// ToSnippet converts an Article into its answer-context representation.
func (a Article) ToSnippet() ContextSnippet {
	return ContextSnippet{
		Title:           a.Title,
		URL:             a.URL,
		PublicationDate: a.PublicationDate,
		SimilarityScore: a.SimilarityScore,
		Snippet:         a.Snippet(),
	}
}

package pipeline

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/newsrag/internal/domain"
)

const ragPromptTemplate = `You are a helpful AI assistant that answers questions based on the provided context from Guardian articles.

Context from Guardian articles:
%s

Question: %s

Please provide a comprehensive answer based on the context above. If the context doesn't contain enough information to answer the question, say so. Use the Guardian articles as your primary source of information.

Answer:`

const directPromptTemplate = `You are a helpful AI assistant. Answer the following question to the best of your ability.

Question: %s

Answer:`

// noMatchesAnswer is returned without calling the LLM when retrieval
// finds nothing.
const noMatchesAnswer = "I couldn't find any relevant articles to answer your question. Please try rephrasing your question."

// buildContext renders retrieved articles into the prompt context
// block, one Title/Date/Content stanza per article.
func buildContext(articles []domain.Article) string {
	blocks := make([]string, 0, len(articles))
	for _, a := range articles {
		blocks = append(blocks, fmt.Sprintf("Title: %s\nDate: %s\nContent: %s",
			a.Title, a.PublicationDate, a.Body))
	}
	return strings.Join(blocks, "\n\n")
}

// ragPrompt renders the retrieval-augmented prompt.
func ragPrompt(question string, articles []domain.Article) string {
	return fmt.Sprintf(ragPromptTemplate, buildContext(articles), question)
}

// directPrompt renders the context-free prompt.
func directPrompt(question string) string {
	return fmt.Sprintf(directPromptTemplate, question)
}

package answer

import (
	"strings"

	"github.com/bull/localrag/internal/retrieval"
)

// Fixed user-facing responses for outcomes that skip generation.
const (
	NoMatchMessage       = "I couldn't find any relevant information in the knowledge base."
	LowConfidenceMessage = "I found some information, but it may not be highly relevant to your question."
)

// DefaultMaxContextChars caps the context block (about 12k tokens at four
// characters per token). The question and instructions are never cut.
const DefaultMaxContextChars = 48000

// ContextSeparator is placed between chunk texts in the prompt context block.
const ContextSeparator = "\n\n---\n\n"

// PromptTemplate is rendered with {context} and {question} substituted.
const PromptTemplate = `You are a helpful AI assistant. Answer the question based on the provided context.

Context:
{context}

Question: {question}

Instructions:
- Provide a clear, accurate answer based on the context
- If the context doesn't contain enough information, say so
- Be concise but comprehensive
- Use bullet points or numbered lists when appropriate`

// BuildContext joins the text of the matches in order.
func BuildContext(matches []retrieval.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Text
	}
	return strings.Join(parts, ContextSeparator)
}

// TruncateContext cuts context to at most maxChars runes and reports whether
// anything was removed. A non-positive maxChars disables the cap.
func TruncateContext(context string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return context, false
	}
	runes := []rune(context)
	if len(runes) <= maxChars {
		return context, false
	}
	return string(runes[:maxChars]), true
}

// RenderPrompt substitutes context and question into PromptTemplate in a
// single pass, so placeholders inside either value are left alone.
func RenderPrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(PromptTemplate)
}

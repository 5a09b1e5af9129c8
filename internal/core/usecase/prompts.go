package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
)

func buildDecompositionPrompt(question string, analysis domain.QueryAnalysis, minQuestions, maxQuestions int) string {
	var b strings.Builder
	b.WriteString("You decompose complex document questions into focused sub-questions.\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "1. Generate between %d and %d sub-questions total.\n", minQuestions, maxQuestions)
	b.WriteString("2. Each sub-question targets ONE specific aspect.\n")

	if analysis.IsComparison && len(analysis.Sources) >= 2 {
		fmt.Fprintf(&b, "3. The question compares these sources: %s.\n", strings.Join(analysis.Sources, ", "))
		b.WriteString("4. Generate an EQUAL number of sub-questions for each source.\n")
		b.WriteString("5. Cover distinct facets per source: benefits and terms, exclusions and limitations, unique features, procedural aspects.\n")
		b.WriteString("6. Name the source explicitly in every sub-question.\n")
	} else {
		b.WriteString("3. Cover distinct facets of the single topic: definitions, conditions, limitations, procedures.\n")
	}

	b.WriteString("\nRespond with a JSON object with a \"questions\" key containing an array of question strings. No other keys, no markdown.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

const synthesisSystemPrompt = "You are a precise document analyst who answers only from supplied sources, with citations for every claim."

func buildSynthesisPrompt(question string, analysis domain.QueryAnalysis, bundle domain.RetrievalBundle, minPointsPerSource int) string {
	var context strings.Builder
	for i, chunk := range bundle.Chunks {
		fmt.Fprintf(&context, "[Source %d: %s, part %d]\n%s\n\n", i+1, chunk.Filename, chunk.ChunkIndex+1, chunk.Text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nDocuments:\n%s", question, context.String())
	b.WriteString(`Instructions:
1. State only facts directly supported by the documents above.
2. Cite every claim as [Source N] or [Sources N, M].
3. If the documents do not cover something, say "the documents don't mention X" and cite the sources you checked. Never treat silence as exclusion: a topic is "excluded" only when a document explicitly states the exclusion.
4. Do not introduce entities, numbers, or claims absent from the documents.
`)
	if analysis.IsComparison && len(analysis.Sources) >= 2 {
		fmt.Fprintf(&b, `5. This is a comparison of: %s. Give at least %d distinct, cited points per source when the documents support it; state plainly when they do not.
6. Only compare figures drawn from comparable contexts; say so explicitly when contexts differ.
`, strings.Join(analysis.Sources, ", "), minPointsPerSource)
	}
	b.WriteString("\nAnswer with citations:\n")
	return b.String()
}

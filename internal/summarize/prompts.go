package summarize

import (
	"fmt"
	"strings"
)

// maxBodyChars caps the article text sent to the provider. Roughly 3k tokens
// at 4 chars/token, keeping even premium-tier calls inside the prompt budget.
const maxBodyChars = 12000

// systemPrompt frames the provider as a bilingual news editor and pins the
// response to a single JSON object.
const systemPrompt = `You are a bilingual news editor for a consumer news app. You produce
concise, faithful summaries of articles in both English and Spanish, judge the
article's journalistic quality, and classify it with topic tags.

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "title_en": "headline in English",
  "title_es": "headline in Spanish",
  "summary_en": "2-4 sentence summary in English",
  "summary_es": "2-4 sentence summary in Spanish",
  "rationale_en": "one sentence on why this story matters, in English",
  "rationale_es": "one sentence on why this story matters, in Spanish",
  "quality_score": 0.0,
  "topic_tags": ["lowercase-tag", "..."]
}

quality_score is a number between 0.0 and 1.0 reflecting sourcing, substance
and clarity of the article. topic_tags are 1-4 short lowercase tags such as
"economy", "technology", "sports".`

// BuildPrompt renders the per-article user prompt. The body is truncated to
// maxBodyChars before being embedded.
func BuildPrompt(req Request) string {
	body := req.Body
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Source language: %s\n", req.Language)
	fmt.Fprintf(&b, "Title: %s\n\n", req.Title)
	fmt.Fprintf(&b, "Article:\n%s\n", body)
	return b.String()
}

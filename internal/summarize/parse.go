package summarize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*({.+})\\s*```")
	rawJSONRe    = regexp.MustCompile("(?s)^\\s*({.+})\\s*$")
)

// ParseResult converts the provider's text output into a Result. JSON inside
// markdown code fences and bare JSON objects both parse; anything else is an
// error, which the pipeline treats as a transient failure for the item.
func ParseResult(raw string) (*Result, error) {
	jsonStr := raw
	if matches := fencedJSONRe.FindStringSubmatch(raw); len(matches) > 1 {
		jsonStr = matches[1]
	} else if matches := rawJSONRe.FindStringSubmatch(raw); len(matches) > 1 {
		jsonStr = matches[1]
	}

	var result Result
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("failed to parse provider response as JSON: %w (first 200 chars: %.200s)", err, raw)
	}

	if result.TitleEn == "" && result.TitleEs == "" {
		return nil, fmt.Errorf("provider response missing titles (first 200 chars: %.200s)", raw)
	}

	// Clamp quality to [0, 1].
	if result.QualityScore < 0 {
		result.QualityScore = 0
	} else if result.QualityScore > 1 {
		result.QualityScore = 1
	}

	// Normalize tags once here so the topic resolver sees clean slugs.
	tags := make([]string, 0, len(result.TopicTags))
	for _, tag := range result.TopicTags {
		tag = strings.TrimSpace(strings.ToLower(tag))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	result.TopicTags = tags

	return &result, nil
}

package retrieval

import (
	"fmt"
	"strings"
)

// Source is the citation record attached to ask/generate responses
type Source struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Citation string  `json:"citation"`
	Score    float64 `json:"relevance,omitempty"`
}

// FormatSource derives the citation for one result by document kind:
// statutes cite law and article, cases cite court, year and case number,
// procedures cite the manual stage; everything else falls back to the title.
func FormatSource(result Result) Source {
	meta := result.Metadata
	docType, _ := meta["type"].(string)
	title, _ := meta["title"].(string)

	source := Source{
		ID:    result.ID,
		Type:  docType,
		Title: title,
		Score: result.Score,
	}

	switch docType {
	case "statute":
		lawName, _ := meta["law_name"].(string)
		article := articleDigits(meta)
		source.Citation = fmt.Sprintf("%s 제%s조", lawName, article)
	case "case":
		court, _ := meta["court"].(string)
		caseNumber, _ := meta["case_number"].(string)
		source.Citation = fmt.Sprintf("%s %v년 %s", court, meta["year"], caseNumber)
	case "procedure":
		stage, _ := meta["stage"].(string)
		source.Citation = "절차 매뉴얼 - " + stage
	default:
		source.Citation = title
	}
	return source
}

// FormatSources derives citations for a result list
func FormatSources(results []Result) []Source {
	sources := make([]Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, FormatSource(result))
	}
	return sources
}

// CitationText renders sources as a numbered [출처] block for appending to
// generated answers. Empty input yields an empty string.
func CitationText(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}
	parts := []string{"\n[출처]"}
	for i, source := range sources {
		citation := source.Citation
		if citation == "" {
			citation = source.Title
		}
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, citation))
	}
	return strings.Join(parts, "\n")
}

// articleDigits extracts the article number whether stored as digits or as a
// full "제347조" marker.
func articleDigits(meta map[string]interface{}) string {
	switch v := meta["article_number"].(type) {
	case string:
		trimmed := strings.TrimSuffix(strings.TrimPrefix(v, "제"), "조")
		return strings.TrimSpace(trimmed)
	case float64:
		return fmt.Sprintf("%d", int(v))
	case int:
		return fmt.Sprintf("%d", v)
	}
	return ""
}

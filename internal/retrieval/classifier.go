// Package retrieval implements the five-stage search pipeline: query
// analysis, vector search, metadata filtering, re-ranking and context
// assembly, plus the keyword classifier and citation formatting that feed it.
package retrieval

import (
	"regexp"
	"strings"
)

// Category keyword tables for implicit query filters. Scores are keyword hit
// counts; the best-scoring label wins, ties broken by table order.
var categoryKeywords = []keywordEntry{
	{"형사", []string{"형사", "범죄", "처벌", "징역", "벌금", "사기", "절도", "폭행", "살인"}},
	{"민사", []string{"민사", "계약", "손해배상", "소유권", "임대차", "금전"}},
	{"가족", []string{"가족", "이혼", "상속", "양육", "부양"}},
	{"행정", []string{"행정", "허가", "인허가", "과태료", "과징금"}},
}

var subCategoryKeywords = []keywordEntry{
	{"사기", []string{"사기", "편취", "기망", "투자금", "피싱"}},
	{"절도", []string{"절도", "도난", "절취"}},
	{"폭행", []string{"폭행", "상해", "협박"}},
	{"계약", []string{"계약", "계약서", "위약금", "해약"}},
	{"손해배상", []string{"손해배상", "배상", "과실"}},
}

var docTypeKeywords = []keywordEntry{
	{"statute", []string{"법령", "조문", "법률", "법규"}},
	{"case", []string{"판례", "판결", "선고", "법원"}},
	{"procedure", []string{"절차", "순서", "방법"}},
	{"template", []string{"템플릿", "양식", "서식"}},
}

type keywordEntry struct {
	label    string
	keywords []string
}

// caseNumberPattern matches Korean court case numbers such as "2005고합694",
// tolerating whitespace between the segments.
var caseNumberPattern = regexp.MustCompile(`(\d{4})\s*([가-힣]+)\s*(\d+)`)

// Classification is the keyword classifier's verdict on a query
type Classification struct {
	Category      string
	SubCategory   string
	DocumentTypes []string
}

// Classify scores the query against the keyword tables and returns the best
// category, sub-category and the matched document types. Empty fields mean
// no confident match.
func Classify(text string) Classification {
	lowered := strings.ToLower(text)
	return Classification{
		Category:      bestLabel(lowered, categoryKeywords),
		SubCategory:   bestLabel(lowered, subCategoryKeywords),
		DocumentTypes: matchedLabels(lowered, docTypeKeywords),
	}
}

// ExtractCaseNumber finds the first case-number pattern in the query and
// returns it normalized with whitespace removed, e.g. "2005 고합 694" →
// "2005고합694". Empty string when none is present.
func ExtractCaseNumber(text string) string {
	match := caseNumberPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1] + match[2] + match[3]
}

func bestLabel(text string, entries []keywordEntry) string {
	best := ""
	bestScore := 0
	for _, entry := range entries {
		score := 0
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				score++
			}
		}
		if score > bestScore {
			best = entry.label
			bestScore = score
		}
	}
	return best
}

func matchedLabels(text string, entries []keywordEntry) []string {
	var labels []string
	for _, entry := range entries {
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				labels = append(labels, entry.label)
				break
			}
		}
	}
	return labels
}

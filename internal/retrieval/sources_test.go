package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSourceByKind(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		citation string
	}{
		{
			name: "statute",
			result: Result{
				ID: "statute_001_chunk_0",
				Metadata: map[string]interface{}{
					"type":           "statute",
					"title":          "형법 제347조",
					"law_name":       "형법",
					"article_number": "제347조",
				},
			},
			citation: "형법 제347조",
		},
		{
			name: "case",
			result: Result{
				ID: "case_001_chunk_0",
				Metadata: map[string]interface{}{
					"type":        "case",
					"title":       "사기 판례",
					"court":       "서울중앙지방법원",
					"year":        2005,
					"case_number": "2005고합694",
				},
			},
			citation: "서울중앙지방법원 2005년 2005고합694",
		},
		{
			name: "procedure",
			result: Result{
				ID: "proc_001_chunk_0",
				Metadata: map[string]interface{}{
					"type":  "procedure",
					"title": "고소 절차",
					"stage": "고소장 접수",
				},
			},
			citation: "절차 매뉴얼 - 고소장 접수",
		},
		{
			name: "fallback to title",
			result: Result{
				ID: "faq_001_chunk_0",
				Metadata: map[string]interface{}{
					"type":  "faq",
					"title": "자주 묻는 질문",
				},
			},
			citation: "자주 묻는 질문",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := FormatSource(tt.result)
			assert.Equal(t, tt.citation, source.Citation)
			assert.Equal(t, tt.result.ID, source.ID)
		})
	}
}

func TestCitationText(t *testing.T) {
	assert.Empty(t, CitationText(nil))

	sources := []Source{
		{Citation: "형법 제347조"},
		{Title: "자주 묻는 질문"}, // empty citation falls back to title
	}
	text := CitationText(sources)
	require.Contains(t, text, "[출처]")
	assert.Contains(t, text, "1. 형법 제347조")
	assert.Contains(t, text, "2. 자주 묻는 질문")
}

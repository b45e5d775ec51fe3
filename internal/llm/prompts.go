// Package llm wraps OpenAI chat completions for answer and content
// generation: prompt templates per document kind, a context-window
// optimizer, streaming, and token usage accounting.
package llm

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const systemPrompt = `당신은 법률 전문가 AI 어시스턴트입니다.
사용자의 법률 질문에 대해 정확하고 전문적인 답변을 제공합니다.

주요 역할:
1. 법령, 판례, 절차 등 법률 정보를 정확하게 설명
2. 사용자의 질문에 대해 명확하고 이해하기 쉬운 답변 제공
3. 관련 법령 조문과 판례를 적절히 인용
4. 실무적인 조언과 주의사항 제공

답변 작성 시 주의사항:
- 정확한 법률 용어 사용
- 출처를 명확히 표시 (법령 조문 번호, 판례 번호 등)
- 추측이나 불확실한 정보 제공 금지
- 사용자의 상황에 맞는 실무적 조언 제공`

// SystemPrompt returns the fixed role-setting prompt for answering
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the user message: a typed template when exactly one
// document type is requested, the general template otherwise.
func UserPrompt(context, query string, documentTypes []string) string {
	if len(documentTypes) == 1 {
		switch documentTypes[0] {
		case "statute":
			return statutePrompt(context, query)
		case "case":
			return casePrompt(context, query)
		case "procedure":
			return procedurePrompt(context, query)
		}
	}
	return generalPrompt(context, query)
}

// WithHistory prefixes a prompt with recent conversation turns
func WithHistory(history, prompt string) string {
	if history == "" {
		return prompt
	}
	return "이전 대화:\n" + history + "\n\n" + prompt
}

func statutePrompt(context, query string) string {
	return fmt.Sprintf(`다음은 관련 법령 정보입니다:

%s

사용자 질문: %s

위 법령 정보를 바탕으로 사용자의 질문에 답변해주세요.
답변 시 다음을 포함해주세요:
1. 관련 법령 조문 번호와 내용
2. 법령의 핵심 내용 설명
3. 실무 적용 시 주의사항`, context, query)
}

func casePrompt(context, query string) string {
	return fmt.Sprintf(`다음은 관련 판례 정보입니다:

%s

사용자 질문: %s

위 판례 정보를 바탕으로 사용자의 질문에 답변해주세요.
답변 시 다음을 포함해주세요:
1. 관련 판례 번호와 법원
2. 판결 요지
3. 실무에 대한 시사점`, context, query)
}

func procedurePrompt(context, query string) string {
	return fmt.Sprintf(`다음은 관련 절차 정보입니다:

%s

사용자 질문: %s

위 절차 정보를 바탕으로 사용자의 질문에 답변해주세요.
답변 시 다음을 포함해주세요:
1. 절차의 단계별 설명
2. 각 단계에서 주의할 사항
3. 필요한 서류나 준비사항`, context, query)
}

func generalPrompt(context, query string) string {
	return fmt.Sprintf(`다음은 검색된 법률 정보입니다:

%s

사용자 질문: %s

위 정보를 바탕으로 사용자의 질문에 정확하고 전문적인 답변을 제공해주세요.
답변 시 다음을 포함해주세요:
1. 핵심 내용 요약
2. 관련 법령이나 판례 인용
3. 실무적 조언`, context, query)
}

// DefaultContextBudget bounds prompt context in characters
const DefaultContextBudget = 12000

// OptimizeContext keeps the context under budget. Over budget it splits on
// the "[문서" block delimiter, keeps the largest blocks that fit and
// re-sorts survivors into original order. A budget <= 0 uses the default.
func OptimizeContext(context string, budget int) string {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	if len(context) <= budget {
		return context
	}

	parts := strings.Split(context, "[문서")
	type block struct {
		index int
		text  string
	}
	blocks := make([]block, 0, len(parts))
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		blocks = append(blocks, block{index: i, text: "[문서" + part})
	}

	bySize := make([]block, len(blocks))
	copy(bySize, blocks)
	sort.SliceStable(bySize, func(i, j int) bool {
		return len(bySize[i].text) > len(bySize[j].text)
	})

	used := 0
	var kept []block
	for _, candidate := range bySize {
		if used+len(candidate.text) > budget {
			continue
		}
		used += len(candidate.text)
		kept = append(kept, candidate)
	}
	if len(kept) == 0 {
		cut := budget
		for cut > 0 && !utf8.RuneStart(context[cut]) {
			cut--
		}
		return context[:cut]
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].index < kept[j].index })
	texts := make([]string, len(kept))
	for i, b := range kept {
		texts[i] = strings.TrimRight(b.text, "\n")
	}
	return strings.Join(texts, "\n")
}

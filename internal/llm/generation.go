package llm

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ContentType selects the generation prompt family
type ContentType string

const (
	ContentTypeBlog     ContentType = "blog"
	ContentTypeArticle  ContentType = "article"
	ContentTypeOpinion  ContentType = "opinion"
	ContentTypeAnalysis ContentType = "analysis"
	ContentTypeFAQ      ContentType = "faq"
)

// Valid reports whether the content type is supported
func (ct ContentType) Valid() bool {
	switch ct {
	case ContentTypeBlog, ContentTypeArticle, ContentTypeOpinion, ContentTypeAnalysis, ContentTypeFAQ:
		return true
	}
	return false
}

// GenerationOptions are the caller constraints folded into the system prompt
type GenerationOptions struct {
	ContentType     ContentType
	Style           string
	TargetLength    int
	IncludeSections []string
	Keywords        []string
}

var generationInstructions = map[ContentType]string{
	ContentTypeBlog: `블로그 포스팅 작성 규칙:
- 독자 친화적이고 이해하기 쉬운 문체 사용
- 법률 용어는 쉬운 설명과 함께 사용
- 실제 사례와 판례를 활용하여 구체적으로 설명
- 실용적인 조언과 대응 방법 포함
- SEO를 고려한 제목과 키워드 배치`,
	ContentTypeArticle: `법률 기사 작성 규칙:
- 객관적이고 중립적인 톤 유지
- 사실에 기반한 정확한 정보 제공
- 법령 조문과 판례를 명확히 인용
- 전문가 의견과 분석 포함`,
	ContentTypeOpinion: `법률 의견서 작성 규칙:
- 전문적이고 정확한 법률 분석
- 관련 법령과 판례를 상세히 인용
- 법리적 논거를 체계적으로 제시
- 결론과 권고사항을 명확히 제시`,
	ContentTypeAnalysis: `법률 케이스 분석 작성 규칙:
- 사건의 사실관계를 명확히 정리
- 법적 쟁점을 체계적으로 분석
- 관련 법령과 판례를 비교 분석
- 법리적 판단과 시사점 제시`,
	ContentTypeFAQ: `FAQ 작성 규칙:
- 질문은 일반인이 궁금해할 만한 내용으로 구성
- 답변은 간결하고 명확하게 작성
- 관련 법령 조문 번호 명시
- 실무적인 조언 포함`,
}

// GenerationSystemPrompt builds the system prompt for content generation
// from the per-type writing rules and the caller constraints.
func GenerationSystemPrompt(opts GenerationOptions) string {
	var b strings.Builder
	b.WriteString("당신은 전문 법률 콘텐츠 작가입니다. 제공된 법률 문서(법령, 판례 등)를 참고하여 정확하고 전문적인 법률 콘텐츠를 작성합니다.\n\n")
	b.WriteString(generationInstructions[opts.ContentType])
	b.WriteString("\n")

	if opts.Style != "" {
		fmt.Fprintf(&b, "\n작성 스타일: %s\n", opts.Style)
	}
	if opts.TargetLength > 0 {
		fmt.Fprintf(&b, "\n목표 글자 수: 약 %d자 (공백 제외)\n", opts.TargetLength)
	}
	if len(opts.IncludeSections) > 0 {
		fmt.Fprintf(&b, "\n반드시 포함할 섹션: %s\n", strings.Join(opts.IncludeSections, ", "))
	}
	if len(opts.Keywords) > 0 {
		fmt.Fprintf(&b, "\n반드시 포함할 키워드: %s\n", strings.Join(opts.Keywords, ", "))
		b.WriteString("키워드는 자연스럽게 문맥에 맞게 배치하세요.\n")
	}

	b.WriteString("\n중요: 제공된 법률 문서의 내용을 정확히 반영하고, 법령 조문 번호와 판례 번호를 명확히 표시하세요.")
	return b.String()
}

var generationStructures = map[ContentType]string{
	ContentTypeBlog: `다음 구조로 작성해주세요:
1. 제목 (SEO 최적화, 매력적)
2. 도입부 (문제 상황 설명, 호기심 유발)
3. 법적 기준과 처벌
4. 실제 사례와 판례
5. 대응 방법과 예방책
6. 전문가 조언
7. 마무리 (행동 유도)`,
	ContentTypeArticle: `다음 구조로 작성해주세요:
1. 제목
2. 기사 본문 (사실 관계, 법적 배경, 전문가 의견)
3. 관련 법령 및 판례 인용
4. 시사점 및 전망`,
	ContentTypeOpinion: `다음 구조로 작성해주세요:
1. 의견서 제목
2. 사실관계
3. 법적 쟁점
4. 관련 법령 및 판례
5. 법리적 분석
6. 결론 및 의견`,
	ContentTypeAnalysis: `다음 구조로 작성해주세요:
1. 분석 제목
2. 사건 개요
3. 법적 쟁점
4. 관련 법령 검토
5. 관련 판례 분석
6. 법리적 판단
7. 시사점`,
	ContentTypeFAQ: `질문과 답변 형식으로 작성하되, 다음 주제들을 포함해주세요:
- 법적 정의 및 기준
- 처벌 및 법적 효과
- 실제 사례
- 대응 방법
- 전문가 상담 필요성`,
}

var generationLeads = map[ContentType]string{
	ContentTypeBlog:     "다음 주제에 대해 법률 블로그 포스팅을 작성해주세요.",
	ContentTypeArticle:  "다음 주제에 대해 법률 기사를 작성해주세요.",
	ContentTypeOpinion:  "다음 주제에 대해 법률 의견서를 작성해주세요.",
	ContentTypeAnalysis: "다음 주제에 대해 법률 케이스 분석을 작성해주세요.",
	ContentTypeFAQ:      "다음 주제에 대해 FAQ를 작성해주세요.",
}

// GenerationUserPrompt builds the user message for content generation
func GenerationUserPrompt(topic, contextText string, contentType ContentType) string {
	lead, ok := generationLeads[contentType]
	if !ok {
		return fmt.Sprintf("다음 주제에 대해 법률 콘텐츠를 작성해주세요:\n\n주제: %s\n\n참고 문서:\n%s", topic, contextText)
	}
	return fmt.Sprintf("%s\n\n주제: %s\n\n%s\n\n참고 문서:\n%s",
		lead, topic, generationStructures[contentType], contextText)
}

// ParsedContent is the structure recovered from generated text
type ParsedContent struct {
	Content  string
	Title    string
	Sections map[string]string
}

// ParseGeneratedContent extracts a title and named sections from generated
// output. Markdown headings (via goldmark) take precedence; plain numbered
// or "제목:" labelled lines are the fallback for non-markdown output.
// Sections are only extracted for blog and article content.
func ParseGeneratedContent(content string, contentType ContentType) ParsedContent {
	parsed := ParsedContent{Content: content}

	title, sections := parseMarkdownStructure([]byte(content))
	if title == "" {
		title = parseLabelledTitle(content)
	}
	parsed.Title = title

	if contentType == ContentTypeBlog || contentType == ContentTypeArticle {
		if len(sections) == 0 {
			sections = parseNumberedSections(content)
		}
		if len(sections) > 0 {
			parsed.Sections = sections
		}
	}
	return parsed
}

// parseMarkdownStructure walks the goldmark AST: the first heading is the
// title, later headings open sections collecting the text beneath them.
func parseMarkdownStructure(source []byte) (string, map[string]string) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))

	var title string
	sections := map[string]string{}
	var current string
	var body []string

	flush := func() {
		if current != "" && len(body) > 0 {
			sections[current] = strings.Join(body, "\n")
		}
		body = nil
	}

	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok {
			headingText := string(nodeText(heading, source))
			if title == "" {
				title = headingText
				continue
			}
			flush()
			current = headingText
			continue
		}
		if current != "" {
			if blockText := strings.TrimSpace(string(nodeText(node, source))); blockText != "" {
				body = append(body, blockText)
			}
		}
	}
	flush()

	if len(sections) == 0 {
		return title, nil
	}
	return title, sections
}

func nodeText(node ast.Node, source []byte) []byte {
	var out []byte
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if textNode, ok := n.(*ast.Text); ok {
			out = append(out, textNode.Segment.Value(source)...)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// parseLabelledTitle scans the first lines for a "제목: …" label
func parseLabelledTitle(content string) string {
	lines := strings.Split(content, "\n")
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "제목") {
			if idx := strings.Index(line, ":"); idx >= 0 {
				return strings.TrimSpace(line[idx+1:])
			}
			if len([]rune(line)) < 100 {
				return line
			}
		}
	}
	return ""
}

// parseNumberedSections splits on "1. 헤더" style lines for plain-text output
func parseNumberedSections(content string) map[string]string {
	sections := map[string]string{}
	var current string
	var body []string

	flush := func() {
		if current != "" && len(body) > 0 {
			sections[current] = strings.Join(body, "\n")
		}
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isNumberedHeader(line) {
			flush()
			current = line
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()

	if len(sections) == 0 {
		return nil
	}
	return sections
}

func isNumberedHeader(line string) bool {
	runes := []rune(line)
	if len(runes) == 0 || len(runes) > 50 {
		return false
	}
	if runes[0] >= '①' && runes[0] <= '⑳' {
		return true
	}
	if runes[0] >= '1' && runes[0] <= '9' && len(runes) > 1 && runes[1] == '.' {
		return true
	}
	return false
}

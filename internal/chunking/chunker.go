// Package chunking splits legal documents into retrievable chunks using a
// strategy keyed on document type: statutes by article, cases by section,
// templates by list item, everything else by fixed-size window.
package chunking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"legal-rag-service/internal/config"
	"legal-rag-service/internal/models"
)

// Chunker is the type-aware document chunker
type Chunker struct {
	chunkSize           int
	chunkOverlap        int
	splitStatuteByItems bool

	articlePattern  *regexp.Regexp
	itemPattern     *regexp.Regexp
	bracketPattern  *regexp.Regexp
	numberedPattern *regexp.Regexp
	colonPattern    *regexp.Regexp
	sentenceSplit   *regexp.Regexp
}

// NewChunker creates a chunker from the chunking configuration
func NewChunker(cfg *config.ChunkingConfig) *Chunker {
	c := &Chunker{
		chunkSize:           cfg.ChunkSize,
		chunkOverlap:        cfg.ChunkOverlap,
		splitStatuteByItems: cfg.SplitStatuteByItems,
	}
	c.initializePatterns()
	return c
}

// initializePatterns compiles the segmentation patterns
func (c *Chunker) initializePatterns() {
	// Article headings: 제1조, 제347조, 제1조의2
	c.articlePattern = regexp.MustCompile(`제\s*(\d+)\s*조(?:\s*의\s*(\d+))?`)
	// Item markers inside an article: circled digits or (1), (2), ...
	c.itemPattern = regexp.MustCompile(`[①-⑳]|\(\d+\)`)
	// Case section headers, tried in order: 【섹션명】, numbered headings,
	// trailing-colon titles
	c.bracketPattern = regexp.MustCompile(`【([^】]+)】`)
	c.numberedPattern = regexp.MustCompile(`(?m)^\s*(\d+\.\s+[^\n]+)`)
	c.colonPattern = regexp.MustCompile(`(?m)([가-힣][가-힣\s]*[:：])(?:\s|$)`)
	// Sentence boundaries for the case fallback
	c.sentenceSplit = regexp.MustCompile(`[。.]\s+`)
}

// Chunk splits one document according to its type. Chunk indices in the
// returned slice are dense from 0 and unique within the document.
func (c *Chunker) Chunk(doc *models.Document) []models.Chunk {
	var chunks []models.Chunk

	switch doc.Type {
	case models.DocumentTypeStatute:
		chunks = c.chunkStatute(doc)
	case models.DocumentTypeCase:
		chunks = c.chunkCase(doc)
	case models.DocumentTypeTemplate:
		chunks = c.chunkTemplate(doc)
	default:
		chunks = c.chunkDefault(doc)
	}

	reindex(chunks)
	return chunks
}

// reindex assigns dense chunk indices in list order. Strategies that skip
// empty segments or split per article would otherwise leave gaps.
func reindex(chunks []models.Chunk) {
	for i := range chunks {
		chunks[i].Metadata[models.MetaChunkIndex] = i
	}
}

// chunkStatute splits a statute at article boundaries; each article becomes
// one chunk, or several when item splitting is enabled.
func (c *Chunker) chunkStatute(doc *models.Document) []models.Chunk {
	if doc.Content.IsList() {
		return c.chunkDefault(doc)
	}
	content := doc.Content.Text

	matches := c.articlePattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		// No article headings; generic chunking is the only option left.
		return c.chunkDefault(doc)
	}

	var chunks []models.Chunk
	for i, m := range matches {
		start := m[0]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		articleText := strings.TrimSpace(content[start:end])
		if articleText == "" {
			continue
		}

		articleNum := content[m[2]:m[3]]
		subArticle := ""
		if m[4] >= 0 {
			subArticle = content[m[4]:m[5]]
		}
		articleNumber := fmt.Sprintf("제%s조", articleNum)
		if subArticle != "" {
			articleNumber += "의" + subArticle
		}

		if c.splitStatuteByItems {
			chunks = append(chunks, c.splitArticleByItems(articleText, articleNumber, doc)...)
			continue
		}

		chunk := models.NewChunk(articleText, len(chunks), doc)
		chunk.Metadata[models.MetaArticleNumber] = articleNumber
		chunk.Metadata[models.MetaArticleNum] = mustAtoi(articleNum)
		if subArticle != "" {
			chunk.Metadata[models.MetaSubArticle] = mustAtoi(subArticle)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitArticleByItems cuts one article at its item markers (①②③ or (1)(2)).
// Text before the first marker becomes a header chunk.
func (c *Chunker) splitArticleByItems(articleText, articleNumber string, doc *models.Document) []models.Chunk {
	matches := c.itemPattern.FindAllStringIndex(articleText, -1)
	if len(matches) == 0 {
		chunk := models.NewChunk(articleText, 0, doc)
		chunk.Metadata[models.MetaArticleNumber] = articleNumber
		chunk.Metadata[models.MetaIsHeader] = false
		return []models.Chunk{chunk}
	}

	var chunks []models.Chunk

	if header := strings.TrimSpace(articleText[:matches[0][0]]); header != "" {
		chunk := models.NewChunk(header, len(chunks), doc)
		chunk.Metadata[models.MetaArticleNumber] = articleNumber
		chunk.Metadata[models.MetaIsHeader] = true
		chunks = append(chunks, chunk)
	}

	for i, m := range matches {
		start := m[0]
		end := len(articleText)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		itemText := strings.TrimSpace(articleText[start:end])
		if itemText == "" {
			continue
		}

		marker := articleText[m[0]:m[1]]
		chunk := models.NewChunk(itemText, len(chunks), doc)
		chunk.Metadata[models.MetaArticleNumber] = articleNumber
		chunk.Metadata[models.MetaItemNumber] = itemNumber(marker)
		chunk.Metadata[models.MetaItemMarker] = marker
		chunk.Metadata[models.MetaIsHeader] = false
		chunks = append(chunks, chunk)
	}
	return chunks
}

// itemNumber normalizes an item marker to its numeric string: "(3)" → "3",
// "②" → "2".
func itemNumber(marker string) string {
	if strings.HasPrefix(marker, "(") {
		return strings.Trim(marker, "()")
	}
	r, _ := utf8.DecodeRuneInString(marker)
	return strconv.Itoa(int(r-'①') + 1)
}

// chunkCase splits a court decision at its section headers. Each section is
// classified into a section type by keywords. Without detectable sections
// the text is packed sentence by sentence into chunk-sized pieces.
func (c *Chunker) chunkCase(doc *models.Document) []models.Chunk {
	if doc.Content.IsList() {
		return c.chunkDefault(doc)
	}
	content := doc.Content.Text

	sections := c.findCaseSections(content)
	if len(sections) == 0 {
		return c.chunkCaseBySentences(content, doc)
	}

	var chunks []models.Chunk
	for i, sec := range sections {
		end := len(content)
		if i+1 < len(sections) {
			end = sections[i+1].start
		}
		sectionText := strings.TrimSpace(content[sec.start:end])
		if sectionText == "" {
			continue
		}

		chunk := models.NewChunk(sectionText, len(chunks), doc)
		chunk.Metadata[models.MetaSectionTitle] = sec.title
		chunk.Metadata[models.MetaSectionType] = classifyCaseSection(sec.title)
		chunks = append(chunks, chunk)
	}
	return chunks
}

type caseSection struct {
	start int
	title string
}

// findCaseSections tries the header patterns in order and keeps the first
// pattern that matches anything.
func (c *Chunker) findCaseSections(content string) []caseSection {
	for _, pattern := range []*regexp.Regexp{c.bracketPattern, c.numberedPattern, c.colonPattern} {
		matches := pattern.FindAllStringSubmatchIndex(content, -1)
		if len(matches) == 0 {
			continue
		}
		sections := make([]caseSection, 0, len(matches))
		for _, m := range matches {
			sections = append(sections, caseSection{
				start: m[0],
				title: strings.TrimSpace(content[m[2]:m[3]]),
			})
		}
		return sections
	}
	return nil
}

// chunkCaseBySentences splits at sentence boundaries and packs greedily up
// to chunkSize characters per chunk.
func (c *Chunker) chunkCaseBySentences(content string, doc *models.Document) []models.Chunk {
	var chunks []models.Chunk
	appendChunk := func(text string) {
		chunk := models.NewChunk(text, len(chunks), doc)
		chunk.Metadata[models.MetaSectionType] = models.SectionTypeGeneral
		chunks = append(chunks, chunk)
	}

	current := ""
	for _, sentence := range c.sentenceSplit.Split(content, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if utf8.RuneCountInString(current)+utf8.RuneCountInString(sentence) > c.chunkSize {
			if current != "" {
				appendChunk(strings.TrimSpace(current))
			}
			current = sentence
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if current != "" {
		appendChunk(strings.TrimSpace(current))
	}
	return chunks
}

// classifyCaseSection maps a section title to its section type by keywords
func classifyCaseSection(title string) string {
	title = strings.ToLower(title)

	contains := func(keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(title, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("사건", "개요", "요지", "사실"):
		return models.SectionTypeOverview
	case contains("판결", "요지", "요약", "결론"):
		return models.SectionTypeSummary
	case contains("이유", "판단", "법리", "법률"):
		return models.SectionTypeReasoning
	case contains("참조", "조문", "법령", "관련"):
		return models.SectionTypeReference
	default:
		return models.SectionTypeGeneral
	}
}

// chunkTemplate emits one chunk per template list item
func (c *Chunker) chunkTemplate(doc *models.Document) []models.Chunk {
	if !doc.Content.IsList() {
		return c.chunkDefault(doc)
	}

	var chunks []models.Chunk
	for i, item := range doc.Content.Items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		chunks = append(chunks, models.NewChunk(item, i, doc))
	}
	return chunks
}

// chunkDefault slides a fixed-size window with overlap over the full text
func (c *Chunker) chunkDefault(doc *models.Document) []models.Chunk {
	runes := []rune(doc.Content.String())

	var chunks []models.Chunk
	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		text := strings.TrimSpace(string(runes[start:end]))

		// Next window starts chunkOverlap characters before this one ended
		next := end
		if end < len(runes) && c.chunkOverlap > 0 {
			next = end - c.chunkOverlap
		}

		if text != "" {
			chunks = append(chunks, models.NewChunk(text, len(chunks), doc))
		}

		if next > start {
			start = next
		} else {
			start += c.chunkSize
		}
	}
	return chunks
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

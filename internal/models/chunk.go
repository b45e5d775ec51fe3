package models

import "fmt"

// Metadata keys shared between the chunker, the indexer and the vector store
const (
	MetaChunkIndex    = "chunk_index"
	MetaDocumentID    = "document_id"
	MetaDocumentType  = "document_type"
	MetaArticleNumber = "article_number"
	MetaArticleNum    = "article_num"
	MetaSubArticle    = "sub_article"
	MetaItemNumber    = "item_number"
	MetaItemMarker    = "item_marker"
	MetaIsHeader      = "is_header"
	MetaSectionTitle  = "section_title"
	MetaSectionType   = "section_type"
)

// Case section types assigned by the chunker's keyword classification
const (
	SectionTypeOverview  = "overview"
	SectionTypeSummary   = "summary"
	SectionTypeReasoning = "reasoning"
	SectionTypeReference = "reference"
	SectionTypeGeneral   = "general"
)

// Chunk is one retrievable unit cut from a document. Metadata always carries
// chunk_index, document_id and document_type; statute and case chunks add
// their kind-specific keys.
type Chunk struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NewChunk builds a chunk with the identifiers every chunk must carry
func NewChunk(text string, index int, doc *Document) Chunk {
	return Chunk{
		Text: text,
		Metadata: map[string]interface{}{
			MetaChunkIndex:   index,
			MetaDocumentID:   doc.ID,
			MetaDocumentType: string(doc.Type),
		},
	}
}

// Index returns the chunk's position within its parent document
func (c *Chunk) Index() int {
	switch v := c.Metadata[MetaChunkIndex].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// StorageID derives the vector store id for the chunk of a document
func (c *Chunk) StorageID() string {
	docID, _ := c.Metadata[MetaDocumentID].(string)
	return ChunkID(docID, c.Index())
}

// ChunkID derives the vector store id for chunk index i of a document
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// ChunkTitle derives the display title for chunk index i of a document
func ChunkTitle(documentTitle string, index int) string {
	return fmt.Sprintf("%s (청크 %d)", documentTitle, index+1)
}

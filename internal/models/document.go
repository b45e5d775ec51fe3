// Package models provides the core data structures for the legal document
// corpus: the tagged document variant, its kind-specific metadata, and the
// chunk records produced by the chunker.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DocumentType identifies the kind of a legal document
type DocumentType string

const (
	// DocumentTypeStatute represents a statute article (법령)
	DocumentTypeStatute DocumentType = "statute"
	// DocumentTypeCase represents a court decision (판례)
	DocumentTypeCase DocumentType = "case"
	// DocumentTypeProcedure represents a procedural manual (절차 매뉴얼)
	DocumentTypeProcedure DocumentType = "procedure"
	// DocumentTypeManual represents a practice manual (실무 매뉴얼)
	DocumentTypeManual DocumentType = "manual"
	// DocumentTypeCaseType represents a case-type definition (사건 유형 정의서)
	DocumentTypeCaseType DocumentType = "case_type"
	// DocumentTypeTemplate represents a content template (템플릿)
	DocumentTypeTemplate DocumentType = "template"
	// DocumentTypeSentencingGuideline represents a sentencing guideline summary (양형기준)
	DocumentTypeSentencingGuideline DocumentType = "sentencing_guideline"
	// DocumentTypeFAQ represents a frequently asked question (법률 FAQ)
	DocumentTypeFAQ DocumentType = "faq"
	// DocumentTypeKeywordMapping represents a keyword-to-case-type mapping (키워드 맵핑)
	DocumentTypeKeywordMapping DocumentType = "keyword_mapping"
	// DocumentTypeStyleIssue represents a writing style issue (스타일 문제)
	DocumentTypeStyleIssue DocumentType = "style_issue"
	// DocumentTypeStatistics represents crime statistics analysis (범죄 통계)
	DocumentTypeStatistics DocumentType = "statistics"
)

// Valid returns true if the document type is valid
func (dt DocumentType) Valid() bool {
	switch dt {
	case DocumentTypeStatute, DocumentTypeCase, DocumentTypeProcedure,
		DocumentTypeManual, DocumentTypeCaseType, DocumentTypeTemplate,
		DocumentTypeSentencingGuideline, DocumentTypeFAQ,
		DocumentTypeKeywordMapping, DocumentTypeStyleIssue, DocumentTypeStatistics:
		return true
	}
	return false
}

// AllDocumentTypes returns every supported document type
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeStatute, DocumentTypeCase, DocumentTypeProcedure,
		DocumentTypeManual, DocumentTypeCaseType, DocumentTypeTemplate,
		DocumentTypeSentencingGuideline, DocumentTypeFAQ,
		DocumentTypeKeywordMapping, DocumentTypeStyleIssue, DocumentTypeStatistics,
	}
}

// Content holds a document body that arrives on the wire as either a single
// string, an ordered list of strings (templates), or a keyword→case-types map
// (keyword mappings). A map is flattened into ordered "key: v1, v2" items so
// downstream consumers only see the two shapes.
type Content struct {
	Text  string
	Items []string
}

// UnmarshalJSON accepts a string, a string list, or a string→string-list map
func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Items = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		c.Text = ""
		c.Items = list
		return nil
	}

	var mapping map[string][]string
	if err := json.Unmarshal(data, &mapping); err == nil {
		keys := make([]string, 0, len(mapping))
		for k := range mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, 0, len(keys))
		for _, k := range keys {
			items = append(items, k+": "+strings.Join(mapping[k], ", "))
		}
		c.Text = ""
		c.Items = items
		return nil
	}

	return errors.New("content must be a string, a list of strings, or a keyword map")
}

// MarshalJSON emits a list when the content is list-shaped, a string otherwise
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Items != nil {
		return json.Marshal(c.Items)
	}
	return json.Marshal(c.Text)
}

// IsList returns true if the content is an ordered list of items
func (c Content) IsList() bool {
	return c.Items != nil
}

// String returns the content as one text body; list items join with newlines
func (c Content) String() string {
	if c.Items != nil {
		return strings.Join(c.Items, "\n")
	}
	return c.Text
}

// Empty returns true if the content has no text after trimming
func (c Content) Empty() bool {
	return strings.TrimSpace(c.String()) == ""
}

// TextContent builds a Content holding a single text body
func TextContent(text string) Content {
	return Content{Text: text}
}

// ListContent builds a Content holding an ordered list of items
func ListContent(items []string) Content {
	if items == nil {
		items = []string{}
	}
	return Content{Items: items}
}

// Document represents one indexable legal record. The Type field selects
// which metadata subset is required; see Validate.
type Document struct {
	ID          string                 `json:"id"`
	Category    string                 `json:"category"`
	SubCategory string                 `json:"sub_category"`
	Type        DocumentType           `json:"type"`
	Title       string                 `json:"title"`
	Content     Content                `json:"content"`
	Question    string                 `json:"question,omitempty"` // FAQ documents only
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ParseDocument decodes a JSON document record, normalizes its text to NFC
// and validates it.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Normalize applies Unicode NFC normalization to all textual fields. Korean
// source files arrive from mixed origins and decomposed Hangul breaks both
// the article regexes and keyword matching.
func (d *Document) Normalize() {
	d.Category = norm.NFC.String(d.Category)
	d.SubCategory = norm.NFC.String(d.SubCategory)
	d.Title = norm.NFC.String(d.Title)
	d.Question = norm.NFC.String(d.Question)
	if d.Content.Items != nil {
		for i, item := range d.Content.Items {
			d.Content.Items[i] = norm.NFC.String(item)
		}
	} else {
		d.Content.Text = norm.NFC.String(d.Content.Text)
	}
}

// Validate checks the base fields plus the metadata subset required by the
// document type.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("document id cannot be empty")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("unsupported document type: %s", d.Type)
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("document %s: category cannot be empty", d.ID)
	}
	if strings.TrimSpace(d.SubCategory) == "" {
		return fmt.Errorf("document %s: sub_category cannot be empty", d.ID)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document %s: title cannot be empty", d.ID)
	}
	if d.Content.Empty() {
		return fmt.Errorf("document %s: content cannot be empty", d.ID)
	}
	if d.Type == DocumentTypeFAQ && strings.TrimSpace(d.Question) == "" {
		return fmt.Errorf("document %s: faq requires a question", d.ID)
	}
	return d.validateMetadata()
}

// StoreMetadata flattens the document identity fields and its kind-specific
// metadata into the single payload map persisted with each vector entry.
func (d *Document) StoreMetadata() map[string]interface{} {
	meta := map[string]interface{}{
		"id":           d.ID,
		"category":     d.Category,
		"sub_category": d.SubCategory,
		"type":         string(d.Type),
		"title":        d.Title,
	}
	for k, v := range d.Metadata {
		meta[k] = v
	}
	return meta
}

package models

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// StatuteMetadata describes a statute article (법령)
type StatuteMetadata struct {
	LawName       string   `json:"law_name" mapstructure:"law_name"`
	ArticleNumber string   `json:"article_number" mapstructure:"article_number"`
	Topics        []string `json:"topics,omitempty" mapstructure:"topics"`
	Source        string   `json:"source,omitempty" mapstructure:"source"`
	UpdatedAt     string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// CaseMetadata describes a court decision (판례)
type CaseMetadata struct {
	Court      string   `json:"court" mapstructure:"court"`
	Year       int      `json:"year" mapstructure:"year"`
	CaseNumber string   `json:"case_number,omitempty" mapstructure:"case_number"`
	Keywords   []string `json:"keywords,omitempty" mapstructure:"keywords"`
	Holding    string   `json:"holding" mapstructure:"holding"`
	UpdatedAt  string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// ProcedureMetadata describes a procedural manual (절차 매뉴얼)
type ProcedureMetadata struct {
	Stage     string   `json:"stage" mapstructure:"stage"`
	Topic     string   `json:"topic,omitempty" mapstructure:"topic"`
	Keywords  []string `json:"keywords,omitempty" mapstructure:"keywords"`
	UpdatedAt string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// ManualMetadata describes a practice manual (실무 매뉴얼)
type ManualMetadata struct {
	ManualType     string   `json:"manual_type" mapstructure:"manual_type"`
	TargetAudience string   `json:"target_audience,omitempty" mapstructure:"target_audience"`
	Keywords       []string `json:"keywords,omitempty" mapstructure:"keywords"`
	UpdatedAt      string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// CaseTypeMetadata describes a case-type definition (사건 유형 정의서)
type CaseTypeMetadata struct {
	CaseTypeCode    string   `json:"case_type_code,omitempty" mapstructure:"case_type_code"`
	RelatedKeywords []string `json:"related_keywords,omitempty" mapstructure:"related_keywords"`
	TypicalPenalty  string   `json:"typical_penalty,omitempty" mapstructure:"typical_penalty"`
	UpdatedAt       string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// TemplateMetadata describes a content template (템플릿)
type TemplateMetadata struct {
	Usage        string   `json:"usage" mapstructure:"usage"`
	OutputStyles []string `json:"output_styles,omitempty" mapstructure:"output_styles"`
	UpdatedAt    string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// SentencingGuidelineMetadata describes a sentencing guideline summary (양형기준)
type SentencingGuidelineMetadata struct {
	GuidelineType string   `json:"guideline_type" mapstructure:"guideline_type"`
	Factors       []string `json:"factors,omitempty" mapstructure:"factors"`
	TypicalRange  string   `json:"typical_range,omitempty" mapstructure:"typical_range"`
	UpdatedAt     string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// FAQMetadata describes a legal FAQ entry (법률 FAQ)
type FAQMetadata struct {
	QuestionType  string   `json:"question_type,omitempty" mapstructure:"question_type"`
	RelatedTopics []string `json:"related_topics,omitempty" mapstructure:"related_topics"`
	Frequency     int      `json:"frequency,omitempty" mapstructure:"frequency"`
	UpdatedAt     string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// KeywordMappingMetadata describes a keyword-to-case-type mapping (키워드 맵핑)
type KeywordMappingMetadata struct {
	Keywords        []string `json:"keywords" mapstructure:"keywords"`
	MappedCaseTypes []string `json:"mapped_case_types,omitempty" mapstructure:"mapped_case_types"`
	Confidence      float64  `json:"confidence,omitempty" mapstructure:"confidence"`
	UpdatedAt       string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// StyleIssueMetadata describes a writing style issue (스타일 문제)
type StyleIssueMetadata struct {
	IssueType string   `json:"issue_type" mapstructure:"issue_type"`
	Severity  string   `json:"severity,omitempty" mapstructure:"severity"`
	Examples  []string `json:"examples,omitempty" mapstructure:"examples"`
	UpdatedAt string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// StatisticsMetadata describes crime statistics analysis (범죄 통계)
type StatisticsMetadata struct {
	Domain            string   `json:"domain" mapstructure:"domain"`
	Source            string   `json:"source" mapstructure:"source"`
	Date              string   `json:"date" mapstructure:"date"`
	CrimeCategoryMain string   `json:"crime_category_main" mapstructure:"crime_category_main"`
	CrimeCategoryMid  string   `json:"crime_category_mid,omitempty" mapstructure:"crime_category_mid"`
	CrimeCategorySub  string   `json:"crime_category_sub,omitempty" mapstructure:"crime_category_sub"`
	Occurrence        int      `json:"occurrence,omitempty" mapstructure:"occurrence"`
	Arrest            int      `json:"arrest,omitempty" mapstructure:"arrest"`
	ArrestRate        float64  `json:"arrest_rate,omitempty" mapstructure:"arrest_rate"`
	ArrestMale        int      `json:"arrest_male,omitempty" mapstructure:"arrest_male"`
	ArrestFemale      int      `json:"arrest_female,omitempty" mapstructure:"arrest_female"`
	ArrestUnknown     int      `json:"arrest_unknown,omitempty" mapstructure:"arrest_unknown"`
	ArrestCorporate   int      `json:"arrest_corporate,omitempty" mapstructure:"arrest_corporate"`
	Tags              []string `json:"tags,omitempty" mapstructure:"tags"`
	EmbeddingText     string   `json:"embedding_text,omitempty" mapstructure:"embedding_text"`
	UpdatedAt         string   `json:"updated_at,omitempty" mapstructure:"updated_at"`
}

// decodeMetadata decodes the free-form metadata map into a typed struct.
// JSON numbers land as float64 in the map, so weak typing is required for
// the integer fields.
func decodeMetadata(in map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}

// StatuteMeta decodes the metadata of a statute document
func (d *Document) StatuteMeta() (*StatuteMetadata, error) {
	var meta StatuteMetadata
	if err := decodeMetadata(d.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode statute metadata: %w", err)
	}
	return &meta, nil
}

// CaseMeta decodes the metadata of a case document
func (d *Document) CaseMeta() (*CaseMetadata, error) {
	var meta CaseMetadata
	if err := decodeMetadata(d.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode case metadata: %w", err)
	}
	return &meta, nil
}

// ProcedureMeta decodes the metadata of a procedure document
func (d *Document) ProcedureMeta() (*ProcedureMetadata, error) {
	var meta ProcedureMetadata
	if err := decodeMetadata(d.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode procedure metadata: %w", err)
	}
	return &meta, nil
}

// StatisticsMeta decodes the metadata of a statistics document
func (d *Document) StatisticsMeta() (*StatisticsMetadata, error) {
	var meta StatisticsMetadata
	if err := decodeMetadata(d.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode statistics metadata: %w", err)
	}
	return &meta, nil
}

// validateMetadata enforces the metadata subset each document type requires
func (d *Document) validateMetadata() error {
	missing := func(field string) error {
		return fmt.Errorf("document %s: %s metadata requires %s", d.ID, d.Type, field)
	}

	switch d.Type {
	case DocumentTypeStatute:
		meta, err := d.StatuteMeta()
		if err != nil {
			return err
		}
		if strings.TrimSpace(meta.LawName) == "" {
			return missing("law_name")
		}
		if strings.TrimSpace(meta.ArticleNumber) == "" {
			return missing("article_number")
		}

	case DocumentTypeCase:
		meta, err := d.CaseMeta()
		if err != nil {
			return err
		}
		if strings.TrimSpace(meta.Court) == "" {
			return missing("court")
		}
		if meta.Year <= 0 {
			return missing("year")
		}
		if strings.TrimSpace(meta.Holding) == "" {
			return missing("holding")
		}

	case DocumentTypeProcedure:
		meta, err := d.ProcedureMeta()
		if err != nil {
			return err
		}
		if strings.TrimSpace(meta.Stage) == "" {
			return missing("stage")
		}

	case DocumentTypeManual:
		var meta ManualMetadata
		if err := decodeMetadata(d.Metadata, &meta); err != nil {
			return fmt.Errorf("failed to decode manual metadata: %w", err)
		}
		if strings.TrimSpace(meta.ManualType) == "" {
			return missing("manual_type")
		}

	case DocumentTypeTemplate:
		var meta TemplateMetadata
		if err := decodeMetadata(d.Metadata, &meta); err != nil {
			return fmt.Errorf("failed to decode template metadata: %w", err)
		}
		if strings.TrimSpace(meta.Usage) == "" {
			return missing("usage")
		}
		if !d.Content.IsList() {
			return fmt.Errorf("document %s: template content must be a list", d.ID)
		}

	case DocumentTypeSentencingGuideline:
		var meta SentencingGuidelineMetadata
		if err := decodeMetadata(d.Metadata, &meta); err != nil {
			return fmt.Errorf("failed to decode sentencing guideline metadata: %w", err)
		}
		if strings.TrimSpace(meta.GuidelineType) == "" {
			return missing("guideline_type")
		}

	case DocumentTypeKeywordMapping:
		var meta KeywordMappingMetadata
		if err := decodeMetadata(d.Metadata, &meta); err != nil {
			return fmt.Errorf("failed to decode keyword mapping metadata: %w", err)
		}
		if len(meta.Keywords) == 0 {
			return missing("keywords")
		}

	case DocumentTypeStyleIssue:
		var meta StyleIssueMetadata
		if err := decodeMetadata(d.Metadata, &meta); err != nil {
			return fmt.Errorf("failed to decode style issue metadata: %w", err)
		}
		if strings.TrimSpace(meta.IssueType) == "" {
			return missing("issue_type")
		}

	case DocumentTypeStatistics:
		meta, err := d.StatisticsMeta()
		if err != nil {
			return err
		}
		if strings.TrimSpace(meta.Domain) == "" {
			return missing("domain")
		}
		if strings.TrimSpace(meta.Source) == "" {
			return missing("source")
		}
		if strings.TrimSpace(meta.Date) == "" {
			return missing("date")
		}
		if strings.TrimSpace(meta.CrimeCategoryMain) == "" {
			return missing("crime_category_main")
		}

	case DocumentTypeCaseType, DocumentTypeFAQ:
		// All kind-specific fields are optional; FAQ's question lives on
		// the document itself and is checked in Validate.
	}

	return nil
}

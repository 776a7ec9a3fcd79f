package model

import (
	"context"
	"encoding/json"
	"strings"
)

const (
	// ArticleType is the document type kept for authorship scoring
	ArticleType = "article"

	subjectJoiner = "，"
	partJoiner    = "。"
)

// RelevanceScorer measures topical similarity of two texts in [0, 1]
type RelevanceScorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
	Threshold() float64
}

// Document is a candidate publication returned by the library search.
// Set-valued attributes are deduplicated and keep first-seen order.
type Document struct {
	CreatorCN     []string `json:"creator_cn"`
	CreatorEN     []string `json:"creator_en"`
	SubjectCN     []string `json:"subject_cn"`
	SubjectEN     []string `json:"subject_en"`
	DescriptionCN string   `json:"description_cn"`
	DescriptionEN string   `json:"description_en"`
	TitleCN       string   `json:"title_cn"`
	TitleEN       string   `json:"title_en"`
	AddTitleCN    string   `json:"add_title_cn"`
	AddTitleEN    string   `json:"add_title_en"`
	Type          string   `json:"type"`
	Language      string   `json:"language"`
	General       []string `json:"general"`
	Publisher     string   `json:"publisher"`
	ISSN          string   `json:"issn"`
	DOI           string   `json:"doi"`

	creators map[string]struct{}
}

// NewDocument normalizes the set-valued attributes and indexes creators
func NewDocument(d Document) Document {
	d.CreatorCN = uniqueStrings(d.CreatorCN)
	d.CreatorEN = uniqueStrings(d.CreatorEN)
	d.SubjectCN = uniqueStrings(d.SubjectCN)
	d.SubjectEN = uniqueStrings(d.SubjectEN)
	d.General = uniqueStrings(d.General)

	d.creators = make(map[string]struct{}, len(d.CreatorCN)+len(d.CreatorEN))
	for _, name := range d.CreatorCN {
		d.creators[name] = struct{}{}
	}
	for _, name := range d.CreatorEN {
		d.creators[name] = struct{}{}
	}
	return d
}

// UnmarshalJSON decodes a document and rebuilds its creator index
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = NewDocument(Document(raw))
	return nil
}

// Creators returns the union of Chinese and English creator names
func (d Document) Creators() []string {
	return uniqueStrings(append(append([]string{}, d.CreatorCN...), d.CreatorEN...))
}

// Subjects returns the union of Chinese and English subject keywords
func (d Document) Subjects() []string {
	return uniqueStrings(append(append([]string{}, d.SubjectCN...), d.SubjectEN...))
}

// Title concatenates both title variants
func (d Document) Title() string {
	return d.TitleCN + d.TitleEN
}

// Description concatenates both description variants
func (d Document) Description() string {
	return d.DescriptionCN + d.DescriptionEN
}

// HasCreator reports whether name is among the document's creators
func (d Document) HasCreator(name string) bool {
	if d.creators != nil {
		_, ok := d.creators[name]
		return ok
	}
	for _, c := range d.CreatorCN {
		if c == name {
			return true
		}
	}
	for _, c := range d.CreatorEN {
		if c == name {
			return true
		}
	}
	return false
}

// IsArticle reports whether the document is a journal article
func (d Document) IsArticle() bool {
	return d.Type == ArticleType
}

// ComparableText is the text matched against a faculty member's research
// subjects: keywords, title and description, skipping empty parts.
func (d Document) ComparableText() string {
	parts := []string{
		strings.TrimSpace(strings.Join(d.SubjectCN, subjectJoiner)),
		strings.TrimSpace(d.TitleCN),
		strings.TrimSpace(d.DescriptionCN),
	}

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			texts = append(texts, p)
		}
	}
	return strings.Join(texts, partJoiner)
}

// ByTeacherScore estimates how likely the document was written by the
// faculty member. A document that does not list the member's name scores 0
// and the scorer is not consulted.
func (d Document) ByTeacherScore(ctx context.Context, faculty FacultyRecord, scorer RelevanceScorer) (float64, error) {
	if !d.HasCreator(faculty.Name) {
		return 0, nil
	}
	return scorer.Score(ctx, faculty.Subject, d.ComparableText())
}

// IsByTeacher accepts the document when its score reaches the scorer threshold
func (d Document) IsByTeacher(ctx context.Context, faculty FacultyRecord, scorer RelevanceScorer) (bool, error) {
	score, err := d.ByTeacherScore(ctx, faculty, scorer)
	if err != nil {
		return false, err
	}
	return score >= scorer.Threshold(), nil
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

package model

import "strings"

// KeywordSeparator joins subject keywords in paper records
const KeywordSeparator = "；"

// PaperRecord is a publication attributed to a faculty member
type PaperRecord struct {
	PersonID    string `json:"person_id"`
	AuthorCN    string `json:"author_cn"`
	AuthorEN    string `json:"author_en"`
	AuthorEmail string `json:"author_email"`
	TitleCN     string `json:"title_cn"`
	TitleEN     string `json:"title_en"`
	KeywordCN   string `json:"keyword_cn"`
	KeywordEN   string `json:"keyword_en"`
	ArticleInfo string `json:"article_info"`
}

// NewPaperRecord assembles the paper record for a document accepted as
// authored by the given faculty member
func NewPaperRecord(faculty FacultyRecord, doc Document) PaperRecord {
	return PaperRecord{
		PersonID:    faculty.PersonID,
		AuthorCN:    faculty.Name,
		AuthorEN:    "",
		AuthorEmail: faculty.Email,
		TitleCN:     doc.TitleCN,
		TitleEN:     doc.TitleEN,
		KeywordCN:   strings.Join(doc.SubjectCN, KeywordSeparator),
		KeywordEN:   strings.Join(doc.SubjectEN, KeywordSeparator),
		ArticleInfo: doc.TitleCN + " " + doc.TitleEN + " " + doc.DescriptionCN + " " + doc.DescriptionEN,
	}
}

// Pairs returns the record as ordered key/value pairs for serialization
func (p PaperRecord) Pairs() [][2]string {
	return [][2]string{
		{"person_id", p.PersonID},
		{"author_cn", p.AuthorCN},
		{"author_en", p.AuthorEN},
		{"author_email", p.AuthorEmail},
		{"title_cn", p.TitleCN},
		{"title_en", p.TitleEN},
		{"keyword_cn", p.KeywordCN},
		{"keyword_en", p.KeywordEN},
		{"article_info", p.ArticleInfo},
	}
}

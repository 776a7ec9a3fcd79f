package model

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	score     float64
	threshold float64
	err       error
	calls     int
	lastA     string
	lastB     string
}

func (s *stubScorer) Score(_ context.Context, a, b string) (float64, error) {
	s.calls++
	s.lastA, s.lastB = a, b
	return s.score, s.err
}

func (s *stubScorer) Threshold() float64 { return s.threshold }

func TestNewDocument_Dedupes(t *testing.T) {
	doc := NewDocument(Document{
		CreatorCN: []string{"张三", "李四", "张三", ""},
		CreatorEN: []string{"Zhang San"},
		SubjectCN: []string{"密码学", "密码学", "图像加密"},
	})

	assert.Equal(t, []string{"张三", "李四"}, doc.CreatorCN)
	assert.Equal(t, []string{"密码学", "图像加密"}, doc.SubjectCN)
	assert.Equal(t, []string{"张三", "李四", "Zhang San"}, doc.Creators())
	assert.True(t, doc.HasCreator("Zhang San"))
	assert.False(t, doc.HasCreator("王五"))
}

func TestDocument_HasCreatorWithoutIndex(t *testing.T) {
	doc := Document{CreatorCN: []string{"张三"}}
	assert.True(t, doc.HasCreator("张三"))
	assert.False(t, doc.HasCreator("李四"))
}

func TestDocument_ComparableText(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "all parts",
			doc: Document{
				SubjectCN:     []string{"混沌加密", "彩色图像"},
				TitleCN:       " 基于分数阶混沌系统的图像加密 ",
				DescriptionCN: "提出一种加密算法",
			},
			want: "混沌加密，彩色图像。基于分数阶混沌系统的图像加密。提出一种加密算法",
		},
		{
			name: "skips empty parts",
			doc:  Document{TitleCN: "标题", DescriptionCN: "   "},
			want: "标题",
		},
		{
			name: "empty",
			doc:  Document{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.ComparableText())
		})
	}
}

func TestDocument_ByTeacherScore_NameAbsent(t *testing.T) {
	doc := NewDocument(Document{CreatorCN: []string{"李四"}, TitleCN: "标题"})
	scorer := &stubScorer{score: 0.9, threshold: 0.4}

	score, err := doc.ByTeacherScore(context.Background(), FacultyRecord{Name: "张三", Subject: "密码学"}, scorer)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, 0, scorer.calls, "scorer must not be consulted when the name is absent")

	ok, err := doc.IsByTeacher(context.Background(), FacultyRecord{Name: "张三"}, scorer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocument_IsByTeacher_Threshold(t *testing.T) {
	doc := NewDocument(Document{
		CreatorCN: []string{"张三", "王五"},
		SubjectCN: []string{"密码学"},
		TitleCN:   "格密码",
	})
	faculty := FacultyRecord{Name: "张三", Subject: "密码学与信息安全"}

	accepted := &stubScorer{score: 0.6, threshold: 0.4216}
	ok, err := doc.IsByTeacher(context.Background(), faculty, accepted)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "密码学与信息安全", accepted.lastA)
	assert.Equal(t, "密码学。格密码", accepted.lastB)

	rejected := &stubScorer{score: 0.4, threshold: 0.4216}
	ok, err = doc.IsByTeacher(context.Background(), faculty, rejected)
	require.NoError(t, err)
	assert.False(t, ok)

	equal := &stubScorer{score: 0.5, threshold: 0.5}
	ok, err = doc.IsByTeacher(context.Background(), faculty, equal)
	require.NoError(t, err)
	assert.True(t, ok, "a score equal to the threshold is accepted")
}

func TestDocument_IsByTeacher_ScorerError(t *testing.T) {
	doc := NewDocument(Document{CreatorCN: []string{"张三"}})
	scorer := &stubScorer{err: errors.New("embedding unavailable")}

	_, err := doc.IsByTeacher(context.Background(), FacultyRecord{Name: "张三"}, scorer)
	require.Error(t, err)
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	doc := NewDocument(Document{
		CreatorCN: []string{"张三"},
		TitleCN:   "标题",
		Type:      ArticleType,
		DOI:       "10.3969/j.issn.1006-2475.2013.11.001",
	})

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.HasCreator("张三"))
	assert.True(t, decoded.IsArticle())
	assert.Equal(t, doc.DOI, decoded.DOI)
}

func TestNewPaperRecord(t *testing.T) {
	faculty := FacultyRecord{PersonID: "712345", Name: "张三", Email: "zs@fudan.edu.cn"}
	doc := NewDocument(Document{
		SubjectCN:     []string{"密码学", "格"},
		TitleCN:       "格密码",
		TitleEN:       "Lattice Crypto",
		DescriptionCN: "摘要",
	})

	paper := NewPaperRecord(faculty, doc)
	assert.Equal(t, "712345", paper.PersonID)
	assert.Equal(t, "张三", paper.AuthorCN)
	assert.Equal(t, "", paper.AuthorEN)
	assert.Equal(t, "zs@fudan.edu.cn", paper.AuthorEmail)
	assert.Equal(t, "密码学；格", paper.KeywordCN)
	assert.Equal(t, "", paper.KeywordEN)
	assert.Equal(t, "格密码 Lattice Crypto 摘要 ", paper.ArticleInfo)
}

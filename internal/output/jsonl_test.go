package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/facultyscope/internal/model"
)

func TestAppendObject_PythonCompatible(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	AppendObject(&buf, [][2]string{
		{"person_id", "7"},
		{"name", "张三\"\\\n\x01 <>& \x7f"},
	})

	// Matches json.dumps(obj, ensure_ascii=False)
	want := "{\"person_id\": \"7\", \"name\": \"张三\\\"\\\\\\n\\u0001 <>& \x7f\"}"
	assert.Equal(t, want, buf.String())
}

func TestAppendObject_ControlCharacters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	AppendObject(&buf, [][2]string{{"k", "\t\r\b\f\x1f"}})
	assert.Equal(t, `{"k": "\t\r\b\f\u001f"}`, buf.String())
}

func TestAppendObject_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	AppendObject(&buf, nil)
	assert.Equal(t, "{}", buf.String())
}

func TestWriter_FacultyLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(model.FacultyRecord{
		PersonID: "731000",
		Name:     "李雷",
		College:  "智能材料与未来能源创新学院",
		Email:    "lilei@fudan.edu.cn",
	}))
	require.NoError(t, w.Close())

	want := `{"person_id": "731000", "name": "李雷", "college": "智能材料与未来能源创新学院", ` +
		`"academic_title": "", "profile": "", "personal_website": "", "subject": "", ` +
		`"email": "lilei@fudan.edu.cn", "phone": ""}` + "\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 1, w.Count())
}

func TestWriter_PaperLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(model.PaperRecord{PersonID: "1", AuthorCN: "韩梅梅", KeywordCN: "格；密码"}))
	require.NoError(t, w.Flush())

	want := `{"person_id": "1", "author_cn": "韩梅梅", "author_en": "", "author_email": "", ` +
		`"title_cn": "", "title_en": "", "keyword_cn": "格；密码", "keyword_en": "", "article_info": ""}` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteAllAndReadFaculty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "information.jsonl")
	records := []model.FacultyRecord{
		{PersonID: "731000", Name: "李雷", Subject: "编码\n信息论"},
		{PersonID: "12", Name: "韩梅梅", Phone: "021-12345678"},
	}
	require.NoError(t, WriteAll(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	got, err := ReadFaculty(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestDecodeFaculty_SkipsBlankLines(t *testing.T) {
	t.Parallel()

	input := "\n{\"name\": \"甲\"}\n   \n{\"name\": \"乙\", \"email\": \"b@x\"}\n\n"
	got, err := DecodeFaculty(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "乙", got[1].Name)
	assert.Equal(t, "b@x", got[1].Email)
}

func TestDecodeFaculty_BadLine(t *testing.T) {
	t.Parallel()

	_, err := DecodeFaculty(strings.NewReader("{\"name\": \"甲\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadFaculty_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadFaculty(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}

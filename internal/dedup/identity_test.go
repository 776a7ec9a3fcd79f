package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/facultyscope/internal/model"
)

func TestIsSchoolWideID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"712345", true},
		{"700000", true},
		{"812345", false},
		{"71234", false},
		{"7123456", false},
		{"", false},
		{"729516", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSchoolWideID(tt.id))
		})
	}
}

func TestPhoneTokens(t *testing.T) {
	t.Parallel()

	got := PhoneTokens("021-65642222, 13800138000,123")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "65642222")
	assert.Contains(t, got, "13800138000")
	assert.NotContains(t, got, "021")

	assert.Empty(t, PhoneTokens(""))
	assert.Empty(t, PhoneTokens("ext 1234"))
}

func TestIsSamePerson(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    model.FacultyRecord
		b    model.FacultyRecord
		want bool
	}{
		{
			name: "school-wide ids equal even with different names",
			a:    model.FacultyRecord{PersonID: "712345", Name: "张三"},
			b:    model.FacultyRecord{PersonID: "712345", Name: "张三丰"},
			want: true,
		},
		{
			name: "school-wide ids differ even with identical contacts",
			a:    model.FacultyRecord{PersonID: "712345", Name: "张三", Email: "zs@fudan.edu.cn"},
			b:    model.FacultyRecord{PersonID: "712346", Name: "张三", Email: "zs@fudan.edu.cn"},
			want: false,
		},
		{
			name: "different names",
			a:    model.FacultyRecord{PersonID: "1", Name: "张三"},
			b:    model.FacultyRecord{PersonID: "2", Name: "李四"},
			want: false,
		},
		{
			name: "emails equal",
			a:    model.FacultyRecord{PersonID: "1", Name: "张三", Email: "zs@fudan.edu.cn"},
			b:    model.FacultyRecord{PersonID: "729516", Name: "张三", Email: "zs@fudan.edu.cn"},
			want: true,
		},
		{
			name: "emails differ despite shared phone",
			a:    model.FacultyRecord{Name: "张三", Email: "a@fudan.edu.cn", Phone: "65642222"},
			b:    model.FacultyRecord{Name: "张三", Email: "b@fudan.edu.cn", Phone: "65642222"},
			want: false,
		},
		{
			name: "shared phone token",
			a:    model.FacultyRecord{Name: "张三", Phone: "021-12345678"},
			b:    model.FacultyRecord{Name: "张三", Phone: "12345678,87654321"},
			want: true,
		},
		{
			name: "one side has no contact data",
			a:    model.FacultyRecord{Name: "张三", Email: "a@fudan.edu.cn"},
			b:    model.FacultyRecord{Name: "张三"},
			want: true,
		},
		{
			name: "email on one side and disjoint phone on the other",
			a:    model.FacultyRecord{Name: "张三", Email: "a@fudan.edu.cn"},
			b:    model.FacultyRecord{Name: "张三", Phone: "65642222"},
			want: false,
		},
		{
			name: "disjoint phones",
			a:    model.FacultyRecord{Name: "张三", Phone: "021-11111111"},
			b:    model.FacultyRecord{Name: "张三", Phone: "021-22222222"},
			want: false,
		},
		{
			name: "short phone fragments never match",
			a:    model.FacultyRecord{Name: "张三", Phone: "021-1234"},
			b:    model.FacultyRecord{Name: "张三", Phone: "021-5678"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSamePerson(tt.a, tt.b))
			assert.Equal(t, tt.want, IsSamePerson(tt.b, tt.a), "IsSamePerson must be symmetric")
		})
	}
}

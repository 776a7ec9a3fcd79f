package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/facultyscope/internal/model"
)

var testMerger = NewMerger("ciram.fudan.", "icome.fudan.")

func TestHomepageMarker(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ciram.fudan.", HomepageMarker("https://ciram.fudan.edu.cn"))
	assert.Equal(t, "bme-college.fudan.", HomepageMarker("https://bme-college.fudan.edu.cn/"))
	assert.Equal(t, "", HomepageMarker("localhost"))
}

func TestMerge_PersonIDAndName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"numeric max", "729516", "1234", "729516"},
		{"numeric beats lexicographic", "99", "100", "100"},
		{"numeric beats non-numeric", "abc", "12", "12"},
		{"both non-numeric", "abc", "abd", "abd"},
		{"empty loses", "", "712345", "712345"},
		{"equal value keeps first", "0712", "712", "0712"},
		{"arbitrary precision", "123456789012345678901234567890", "9", "123456789012345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testMerger.Merge(
				model.FacultyRecord{PersonID: tt.a, Name: "张三"},
				model.FacultyRecord{PersonID: tt.b, Name: "张三"},
			)
			assert.Equal(t, tt.want, got.PersonID)
		})
	}

	merged := testMerger.Merge(model.FacultyRecord{Name: "张三"}, model.FacultyRecord{Name: "张三丰"})
	assert.Equal(t, "张三丰", merged.Name)
}

func TestMerge_AffiliatedAppointmentYields(t *testing.T) {
	t.Parallel()

	primary := model.FacultyRecord{
		Name:          "张三",
		College:       "计算机科学技术学院",
		AcademicTitle: "教授",
	}
	affiliated := model.FacultyRecord{
		Name:          "张三",
		College:       "智能机器人与先进制造创新学院",
		AcademicTitle: "兼聘教授",
		Profile:       "很长的个人简介，比另一条记录多得多的信息",
		Subject:       "机器人",
		Email:         "zs@fudan.edu.cn",
		Phone:         "65642222",
	}

	for _, got := range []model.FacultyRecord{
		testMerger.Merge(primary, affiliated),
		testMerger.Merge(affiliated, primary),
	} {
		assert.Equal(t, "计算机科学技术学院", got.College)
		assert.Equal(t, "教授", got.AcademicTitle)
		assert.Equal(t, affiliated.Profile, got.Profile)
		assert.Equal(t, "zs@fudan.edu.cn", got.Email)
	}
}

func TestMerge_BothAffiliatedUsesInformativeness(t *testing.T) {
	t.Parallel()

	a := model.FacultyRecord{Name: "张三", College: "A", AcademicTitle: "兼聘教授"}
	b := model.FacultyRecord{Name: "张三", College: "B", AcademicTitle: "兼聘研究员", Email: "zs@fudan.edu.cn"}

	assert.Equal(t, "B", testMerger.Merge(a, b).College)
	assert.Equal(t, "B", testMerger.Merge(b, a).College)
}

func TestMerge_InformativenessTieBreaks(t *testing.T) {
	t.Parallel()

	a := model.FacultyRecord{Name: "张三", College: "A", AcademicTitle: "教授", Subject: "密码学"}
	b := model.FacultyRecord{Name: "张三", College: "B", AcademicTitle: "副教授", Subject: "密码学"}
	assert.Equal(t, "B", testMerger.Merge(a, b).College, "longer detail text wins on equal field count")

	c := model.FacultyRecord{Name: "张三", College: "C", AcademicTitle: "教授"}
	d := model.FacultyRecord{Name: "张三", College: "D", AcademicTitle: "讲师"}
	assert.Equal(t, "C", testMerger.Merge(c, d).College, "full tie keeps the first record")
}

func TestMerge_PersonalWebsite(t *testing.T) {
	t.Parallel()

	college := "https://ciram.fudan.edu.cn/2d/59/c48925a732505/page.htm"
	personal := "https://zhangsan.github.io"

	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"empty loses", "", college, college},
		{"personal beats college page", college, personal, personal},
		{"longer personal wins", "https://a.io", personal, personal},
		{"tie keeps first", "https://a.io", "https://b.io", "https://a.io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testMerger.Merge(
				model.FacultyRecord{Name: "张三", PersonalWebsite: tt.a},
				model.FacultyRecord{Name: "张三", PersonalWebsite: tt.b},
			)
			assert.Equal(t, tt.want, got.PersonalWebsite)
		})
	}

	assert.Equal(t, 0, testMerger.HomepageScore(""))
	assert.Equal(t, 1, testMerger.HomepageScore(college))
	assert.Equal(t, len(personal)+1, testMerger.HomepageScore(personal))
}

func TestMerge_LongerTextFields(t *testing.T) {
	t.Parallel()

	a := model.FacultyRecord{Name: "张三", Subject: "密码学", Email: "a@x.cn", Phone: "65642222"}
	b := model.FacultyRecord{Name: "张三", Subject: "密码学与信息安全", Email: "b@x.cn", Phone: "021-65642222"}

	got := testMerger.Merge(a, b)
	assert.Equal(t, "密码学与信息安全", got.Subject)
	assert.Equal(t, "a@x.cn", got.Email, "equal length keeps the first value")
	assert.Equal(t, "021-65642222", got.Phone)
}

func TestMerge_StrictSupersetRoundTrip(t *testing.T) {
	t.Parallel()

	full := model.FacultyRecord{
		PersonID:        "712345",
		Name:            "张三",
		College:         "计算机科学技术学院",
		AcademicTitle:   "教授",
		Profile:         "复旦大学博士",
		PersonalWebsite: "https://zhangsan.github.io",
		Subject:         "密码学",
		Email:           "zs@fudan.edu.cn",
		Phone:           "65642222",
	}
	partial := model.FacultyRecord{
		Name:    "张三",
		College: "计算机科学技术学院",
		Subject: "密码学",
	}

	assert.Equal(t, full, testMerger.Merge(full, partial))
	assert.Equal(t, full, testMerger.Merge(partial, full))
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	a := model.FacultyRecord{PersonID: "1001", Name: "张三", College: "A", AcademicTitle: "教授", Email: "zs@fudan.edu.cn"}
	b := model.FacultyRecord{PersonID: "712345", Name: "张三", College: "B", Subject: "密码学", Phone: "65642222"}

	once := testMerger.Merge(a, b)
	twice := testMerger.Merge(once, b)

	assert.Equal(t, once, twice)
	assert.GreaterOrEqual(t, twice.FilledFields(), once.FilledFields())
}

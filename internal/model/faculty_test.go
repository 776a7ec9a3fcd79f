package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacultyRecord_WithDoesNotMutate(t *testing.T) {
	t.Parallel()

	original := FacultyRecord{Name: "张三", Email: "a@fudan.edu.cn"}
	updated := original.With(FieldEmail, "b@fudan.edu.cn")

	assert.Equal(t, "a@fudan.edu.cn", original.Email, "original record was mutated")
	assert.Equal(t, "b@fudan.edu.cn", updated.Email)
}

func TestFacultyRecord_GetWithAllFields(t *testing.T) {
	t.Parallel()

	var r FacultyRecord
	for _, f := range Fields() {
		r = r.With(f, f.Key())
	}
	for _, f := range Fields() {
		assert.Equal(t, f.Key(), r.Get(f))
	}
	assert.Equal(t, 9, r.FilledFields())
}

func TestFieldByKey(t *testing.T) {
	t.Parallel()

	f, ok := FieldByKey("personal_website")
	require.True(t, ok)
	assert.Equal(t, FieldPersonalWebsite, f)

	_, ok = FieldByKey("homepage")
	assert.False(t, ok, "unknown key should be rejected")
}

func TestFacultyRecord_Validate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, FacultyRecord{}.Validate(), ErrMissingName)
	assert.NoError(t, FacultyRecord{Name: "张三"}.Validate())
}

func TestFacultyRecord_PairsOrder(t *testing.T) {
	t.Parallel()

	want := []string{"person_id", "name", "college", "academic_title", "profile",
		"personal_website", "subject", "email", "phone"}
	pairs := FacultyRecord{}.Pairs()
	require.Len(t, pairs, len(want))

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p[0]
	}
	assert.Equal(t, want, keys)
}

package model

import (
	"errors"
	"fmt"
)

// ErrMissingName is returned when a faculty record has no name (the join key)
var ErrMissingName = errors.New("faculty record has no name")

// Field identifies one of the nine FacultyRecord attributes
type Field int

const (
	FieldPersonID Field = iota
	FieldName
	FieldCollege
	FieldAcademicTitle
	FieldProfile
	FieldPersonalWebsite
	FieldSubject
	FieldEmail
	FieldPhone
)

var fieldKeys = [...]string{
	FieldPersonID:        "person_id",
	FieldName:            "name",
	FieldCollege:         "college",
	FieldAcademicTitle:   "academic_title",
	FieldProfile:         "profile",
	FieldPersonalWebsite: "personal_website",
	FieldSubject:         "subject",
	FieldEmail:           "email",
	FieldPhone:           "phone",
}

// Key returns the serialized key of the field
func (f Field) Key() string {
	if f < 0 || int(f) >= len(fieldKeys) {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldKeys[f]
}

// String implements fmt.Stringer
func (f Field) String() string {
	return f.Key()
}

// Fields returns all record fields in canonical output order
func Fields() []Field {
	return []Field{
		FieldPersonID,
		FieldName,
		FieldCollege,
		FieldAcademicTitle,
		FieldProfile,
		FieldPersonalWebsite,
		FieldSubject,
		FieldEmail,
		FieldPhone,
	}
}

// FieldByKey resolves a serialized key such as "academic_title"
func FieldByKey(key string) (Field, bool) {
	for i, k := range fieldKeys {
		if k == key {
			return Field(i), true
		}
	}
	return 0, false
}

// FacultyRecord is one faculty member as reported by one source.
// Absent attributes are empty strings. Records are values: use With to
// derive a modified copy instead of mutating a shared record.
type FacultyRecord struct {
	PersonID        string `json:"person_id"`
	Name            string `json:"name"`
	College         string `json:"college"`
	AcademicTitle   string `json:"academic_title"`
	Profile         string `json:"profile"`
	PersonalWebsite string `json:"personal_website"`
	Subject         string `json:"subject"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
}

// Get returns the value of a field
func (r FacultyRecord) Get(f Field) string {
	switch f {
	case FieldPersonID:
		return r.PersonID
	case FieldName:
		return r.Name
	case FieldCollege:
		return r.College
	case FieldAcademicTitle:
		return r.AcademicTitle
	case FieldProfile:
		return r.Profile
	case FieldPersonalWebsite:
		return r.PersonalWebsite
	case FieldSubject:
		return r.Subject
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	}
	return ""
}

// With returns a copy of the record with one field replaced
func (r FacultyRecord) With(f Field, value string) FacultyRecord {
	switch f {
	case FieldPersonID:
		r.PersonID = value
	case FieldName:
		r.Name = value
	case FieldCollege:
		r.College = value
	case FieldAcademicTitle:
		r.AcademicTitle = value
	case FieldProfile:
		r.Profile = value
	case FieldPersonalWebsite:
		r.PersonalWebsite = value
	case FieldSubject:
		r.Subject = value
	case FieldEmail:
		r.Email = value
	case FieldPhone:
		r.Phone = value
	}
	return r
}

// FilledFields counts the non-empty fields
func (r FacultyRecord) FilledFields() int {
	n := 0
	for _, f := range Fields() {
		if r.Get(f) != "" {
			n++
		}
	}
	return n
}

// Validate checks the record can take part in aggregation
func (r FacultyRecord) Validate() error {
	if r.Name == "" {
		return ErrMissingName
	}
	return nil
}

// Pairs returns the record as ordered key/value pairs for serialization
func (r FacultyRecord) Pairs() [][2]string {
	fields := Fields()
	pairs := make([][2]string, len(fields))
	for i, f := range fields {
		pairs[i] = [2]string{f.Key(), r.Get(f)}
	}
	return pairs
}

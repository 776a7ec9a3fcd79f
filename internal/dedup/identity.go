// Package dedup decides whether two faculty records describe the same person
// and merges records that do.
package dedup

import (
	"regexp"
	"strings"

	"github.com/ppiankov/facultyscope/internal/model"
)

var (
	phoneSeparator = regexp.MustCompile(`[-,]`)
	phoneToken     = regexp.MustCompile(`^[0-9]{8,11}$`)
)

// IsSchoolWideID reports whether id is a university-wide staff number:
// six characters starting with '7'.
func IsSchoolWideID(id string) bool {
	return len(id) == 6 && strings.HasPrefix(id, "7")
}

// PhoneTokens splits a phone field on '-' and ',' and keeps the tokens that
// look like complete numbers (8 to 11 digits).
func PhoneTokens(phone string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, part := range phoneSeparator.Split(phone, -1) {
		part = strings.TrimSpace(part)
		if phoneToken.MatchString(part) {
			tokens[part] = struct{}{}
		}
	}
	return tokens
}

// IsSamePerson decides whether two records belong to the same faculty member.
// Rules are applied in order and the first applicable one decides:
//
//  1. both person IDs are school-wide IDs: the IDs must match
//  2. different names: not the same person
//  3. both emails present: the emails must match
//  4. a shared phone number: same person
//  5. either side has neither email nor phone: assumed to be the same person
//  6. otherwise: different people
func IsSamePerson(a, b model.FacultyRecord) bool {
	if IsSchoolWideID(a.PersonID) && IsSchoolWideID(b.PersonID) {
		return a.PersonID == b.PersonID
	}

	if a.Name != b.Name {
		return false
	}

	if a.Email != "" && b.Email != "" {
		return a.Email == b.Email
	}

	if sharesPhone(a.Phone, b.Phone) {
		return true
	}

	aContact := a.Email != "" || a.Phone != ""
	bContact := b.Email != "" || b.Phone != ""
	if !(aContact && bContact) {
		return true
	}

	return false
}

func sharesPhone(a, b string) bool {
	tokensA := PhoneTokens(a)
	if len(tokensA) == 0 {
		return false
	}
	for token := range PhoneTokens(b) {
		if _, ok := tokensA[token]; ok {
			return true
		}
	}
	return false
}

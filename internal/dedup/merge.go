package dedup

import (
	"math/big"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/facultyscope/internal/model"
)

// AffiliatedMarker marks an affiliated (secondary) appointment in a title
const AffiliatedMarker = "兼聘"

// Merger combines two records describing the same person.
// HomepageMarkers identify college-hosted profile pages, e.g. "ciram.fudan.".
type Merger struct {
	HomepageMarkers []string
}

// NewMerger creates a merger recognizing the given homepage markers
func NewMerger(markers ...string) Merger {
	return Merger{HomepageMarkers: markers}
}

// HomepageMarker derives the college homepage marker from a college base URL:
// "https://ciram.fudan.edu.cn" yields "ciram.fudan.".
func HomepageMarker(baseURL string) string {
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	return labels[0] + "." + labels[1] + "."
}

// Merge returns a new record combining a and b. Ties keep the value from a.
func (m Merger) Merge(a, b model.FacultyRecord) model.FacultyRecord {
	richer := moreInformative(a, b)

	return model.FacultyRecord{
		PersonID:        maxPersonID(a.PersonID, b.PersonID),
		Name:            maxString(a.Name, b.Name),
		College:         richer.College,
		AcademicTitle:   richer.AcademicTitle,
		Profile:         longer(a.Profile, b.Profile),
		PersonalWebsite: m.betterHomepage(a.PersonalWebsite, b.PersonalWebsite),
		Subject:         longer(a.Subject, b.Subject),
		Email:           longer(a.Email, b.Email),
		Phone:           longer(a.Phone, b.Phone),
	}
}

// HomepageScore ranks personal website candidates: empty scores 0, a
// college-hosted profile page 1, any other URL its length plus one.
func (m Merger) HomepageScore(u string) int {
	if u == "" {
		return 0
	}
	if m.isCollegeHomepage(u) {
		return 1
	}
	return utf8.RuneCountInString(u) + 1
}

func (m Merger) isCollegeHomepage(u string) bool {
	for _, marker := range m.HomepageMarkers {
		if marker != "" && strings.Contains(u, marker) {
			return true
		}
	}
	return false
}

func (m Merger) betterHomepage(a, b string) string {
	if m.HomepageScore(b) > m.HomepageScore(a) {
		return b
	}
	return a
}

// moreInformative picks the record whose college and title are kept.
// A record holding an affiliated appointment yields to the other one.
func moreInformative(a, b model.FacultyRecord) model.FacultyRecord {
	aAffiliated := strings.Contains(a.AcademicTitle, AffiliatedMarker)
	bAffiliated := strings.Contains(b.AcademicTitle, AffiliatedMarker)
	switch {
	case aAffiliated && !bAffiliated:
		return b
	case bAffiliated && !aAffiliated:
		return a
	}

	if lessInformative(a, b) {
		return b
	}
	return a
}

func lessInformative(a, b model.FacultyRecord) bool {
	fa, fb := a.FilledFields(), b.FilledFields()
	if fa != fb {
		return fa < fb
	}
	return detailLength(a) < detailLength(b)
}

func detailLength(r model.FacultyRecord) int {
	return utf8.RuneCountInString(r.AcademicTitle) +
		utf8.RuneCountInString(r.Profile) +
		utf8.RuneCountInString(r.Subject)
}

// maxPersonID keeps the numerically larger ID. A numeric ID beats a
// non-numeric one; two non-numeric IDs compare as strings.
func maxPersonID(a, b string) string {
	na, aOK := parseID(a)
	nb, bOK := parseID(b)
	switch {
	case aOK && bOK:
		if nb.Cmp(na) > 0 {
			return b
		}
		return a
	case aOK:
		return a
	case bOK:
		return b
	}
	return maxString(a, b)
}

func parseID(id string) (*big.Int, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	return new(big.Int).SetString(id, 10)
}

func maxString(a, b string) string {
	if b > a {
		return b
	}
	return a
}

func longer(a, b string) string {
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		return b
	}
	return a
}

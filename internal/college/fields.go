package college

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/facultyscope/internal/model"
)

// Reference kinds usable in CollegeConfig.Fields
const (
	refEntry = "entry"
	refPage  = "page"
	refClass = "class"
	refAfter = "after"
	refHref  = "href"
	refNext  = "next"
)

// joinSep separates the values of references joined with "+"
const joinSep = "、"

// Entry is one member as listed by a college directory
type Entry map[string]string

type ref struct {
	kind string
	arg  string
}

// fieldSpec holds the parsed alternatives of one record field
type fieldSpec struct {
	field        model.Field
	alternatives [][]ref
}

// defaultFields apply when a college does not configure the field
var defaultFields = map[model.Field][]string{
	model.FieldPersonID:        {"entry:id"},
	model.FieldName:            {"entry:title", "entry:name"},
	model.FieldPersonalWebsite: {"entry:url"},
}

// parseFields validates and compiles the field configuration of a college
func parseFields(fields map[string][]string) ([]fieldSpec, error) {
	merged := make(map[model.Field][]string, len(defaultFields)+len(fields))
	for f, alts := range defaultFields {
		merged[f] = alts
	}
	for key, alts := range fields {
		f, ok := model.FieldByKey(key)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		merged[f] = alts
	}

	var specs []fieldSpec
	for _, f := range model.Fields() {
		alts, ok := merged[f]
		if !ok {
			continue
		}
		spec := fieldSpec{field: f}
		for _, alt := range alts {
			var refs []ref
			for _, part := range strings.Split(alt, "+") {
				kind, arg, found := strings.Cut(strings.TrimSpace(part), ":")
				if !found || arg == "" {
					return nil, fmt.Errorf("field %s: malformed reference %q", f, part)
				}
				switch kind {
				case refEntry, refPage, refClass, refAfter, refHref, refNext:
				default:
					return nil, fmt.Errorf("field %s: unknown reference kind %q", f, kind)
				}
				refs = append(refs, ref{kind: kind, arg: arg})
			}
			spec.alternatives = append(spec.alternatives, refs)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// needsPage reports whether any field reads the member page
func needsPage(specs []fieldSpec) bool {
	for _, spec := range specs {
		for _, alt := range spec.alternatives {
			for _, r := range alt {
				if r.kind != refEntry {
					return true
				}
			}
		}
	}
	return false
}

// resolve reads one reference; page may be nil
func (r ref) resolve(entry Entry, page *Profile) string {
	switch r.kind {
	case refEntry:
		return strings.TrimSpace(entry[r.arg])
	case refPage:
		return page.Label(r.arg)
	case refClass:
		return page.Class(r.arg)
	case refAfter:
		return page.After(r.arg)
	case refHref:
		return page.Href(r.arg)
	case refNext:
		return page.Next(r.arg)
	}
	return ""
}

// buildRecord assembles a faculty record from a listing entry and an optional
// member page
func buildRecord(specs []fieldSpec, cfg model.CollegeConfig, entry Entry, page *Profile) model.FacultyRecord {
	rec := model.FacultyRecord{College: cfg.Name}
	for _, spec := range specs {
		for _, alt := range spec.alternatives {
			value := resolveAlternative(alt, entry, page)
			if spec.field == model.FieldPersonalWebsite {
				value = cleanWebsite(value, cfg.BaseURL)
			}
			if value != "" {
				rec = rec.With(spec.field, value)
				break
			}
		}
	}
	return rec
}

func resolveAlternative(alt []ref, entry Entry, page *Profile) string {
	if len(alt) == 1 {
		return alt[0].resolve(entry, page)
	}
	parts := make([]string, 0, len(alt))
	for _, r := range alt {
		parts = append(parts, r.resolve(entry, page))
	}
	return strings.Trim(strings.Join(parts, joinSep), joinSep)
}

// cleanWebsite drops placeholder links and resolves relative ones against the
// college site
func cleanWebsite(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return ""
	}
	return resolveURL(base, raw)
}

// resolveURL resolves ref against base, returning ref unchanged when either
// does not parse
func resolveURL(base, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(u).String()
}

package college

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxLabelRunes is the longest label accepted in a "label：value" line
const maxLabelRunes = 12

// Profile is a parsed faculty member page. Values maps labels and section
// headings to their text; the first occurrence of a label wins.
type Profile struct {
	Values map[string]string
	root   *html.Node
}

// ParseProfile extracts labelled values from a member page. In order of
// precedence a value comes from a headed section (h1-h6, or a paragraph led by
// <strong>, running until the next heading), a tab panel named by its
// data-id link, a label element followed by a value element, or a
// "label：value" line.
func ParseProfile(body []byte) (*Profile, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	p := &Profile{Values: make(map[string]string), root: root}
	p.collectSections(root)
	p.collectTabs(root)
	p.collectAdjacentLabels(root)
	p.collectLabelLines(root)
	return p, nil
}

// Label returns the value recorded under a label or section heading
func (p *Profile) Label(label string) string {
	if p == nil {
		return ""
	}
	return p.Values[label]
}

// Class returns the text of the first element carrying the CSS class
func (p *Profile) Class(name string) string {
	if p == nil {
		return ""
	}
	n := findFirst(p.root, func(n *html.Node) bool { return hasClass(n, name) })
	if n == nil {
		return ""
	}
	return nodeText(n)
}

// After returns the text of the element following the first element that
// carries the CSS class
func (p *Profile) After(name string) string {
	if p == nil {
		return ""
	}
	n := findFirst(p.root, func(n *html.Node) bool { return hasClass(n, name) })
	if n == nil {
		return ""
	}
	if next := nextElement(n); next != nil {
		return nodeText(next)
	}
	return ""
}

// Href returns the link target inside the first element carrying the CSS
// class, or of that element when it is a link itself
func (p *Profile) Href(name string) string {
	if p == nil {
		return ""
	}
	n := findFirst(p.root, func(n *html.Node) bool { return hasClass(n, name) })
	if n == nil {
		return ""
	}
	link := findFirst(n, func(c *html.Node) bool {
		if c.Type != html.ElementNode || c.DataAtom != atom.A {
			return false
		}
		href := strings.TrimSpace(attr(c, "href"))
		return href != "" && href != "#"
	})
	if link == nil {
		return ""
	}
	return strings.TrimSpace(attr(link, "href"))
}

// Next returns the text of the element following the innermost element that
// reads label, e.g. a title div followed by its content div. Lines are joined
// with "\n".
func (p *Profile) Next(label string) string {
	if p == nil {
		return ""
	}
	n := findFirst(p.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom != atom.Html && n.DataAtom != atom.Body &&
			!hasBlockDescendant(n) && cleanLabel(nodeText(n)) == label
	})
	if n == nil {
		return ""
	}
	next := nextElement(n)
	if next == nil {
		return ""
	}
	if next.DataAtom == atom.A {
		return linkOrText(next)
	}
	return strings.Join(textLines(next), "\n")
}

func (p *Profile) set(label, value string) {
	label = cleanLabel(label)
	value = strings.TrimSpace(value)
	if label == "" || value == "" {
		return
	}
	if _, ok := p.Values[label]; !ok {
		p.Values[label] = value
	}
}

// collectSections walks every element and groups its children into headed
// sections
func (p *Profile) collectSections(root *html.Node) {
	for _, parent := range findAll(root, func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		heading := ""
		var body []string
		flush := func() {
			if heading != "" {
				p.set(heading, strings.Join(body, "\n"))
			}
			heading, body = "", nil
		}

		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch {
			case headingAtoms[c.DataAtom]:
				flush()
				heading = nodeText(c)
			case c.DataAtom == atom.P && isStrongLed(c):
				flush()
				strong := firstElementChild(c)
				heading = nodeText(strong)
				if text := strings.Trim(restText(strong), ":： "); text != "" {
					body = append(body, text)
				}
			case heading != "":
				body = append(body, textLines(c)...)
			}
		}
		flush()
	}
}

// collectTabs records tab panels: a link <a data-id="4">label</a> names the
// panel <div id="tab_4">
func (p *Profile) collectTabs(root *html.Node) {
	for _, n := range findAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "data-id") != ""
	}) {
		id := "tab_" + strings.TrimSpace(attr(n, "data-id"))
		panel := findFirst(root, func(c *html.Node) bool {
			return c.Type == html.ElementNode && attr(c, "id") == id
		})
		if panel != nil {
			p.set(nodeText(n), strings.Join(textLines(panel), "\n"))
		}
	}
}

// collectAdjacentLabels records <x>label：</x><y>value</y> pairs. A sibling of
// the same element type holding its own "label：value" is not a value.
func (p *Profile) collectAdjacentLabels(root *html.Node) {
	for _, n := range findAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom != atom.Html && n.DataAtom != atom.Body && !hasBlockDescendant(n)
	}) {
		text := nodeText(n)
		if !strings.HasSuffix(text, "：") && !strings.HasSuffix(text, ":") {
			continue
		}
		next := nextElement(n)
		if next == nil {
			continue
		}
		if next.DataAtom == n.DataAtom && strings.Contains(nodeText(next), "：") {
			continue
		}
		p.set(text, linkOrText(next))
	}
}

// collectLabelLines records "label：value" lines of leaf blocks
func (p *Profile) collectLabelLines(root *html.Node) {
	for _, n := range findAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && blockAtoms[n.DataAtom] && n.DataAtom != atom.Br && !hasBlockDescendant(n)
	}) {
		for _, line := range textLines(n) {
			label, value, ok := splitLabel(line)
			if ok {
				p.set(label, value)
			}
		}
	}
}

// restText returns the text following n within its parent. A lone link is
// rendered as its target.
func restText(n *html.Node) string {
	var parts []*html.Node
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.TextNode && strings.Trim(normalizeSpace(s.Data), ":： ") == "" {
			continue
		}
		parts = append(parts, s)
	}
	if len(parts) == 1 {
		return linkOrText(parts[0])
	}
	var buf strings.Builder
	for _, s := range parts {
		buf.WriteString(nodeText(s))
	}
	return buf.String()
}

// linkOrText returns the href of a link element, or the text of any other node
func linkOrText(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		if href := strings.TrimSpace(attr(n, "href")); href != "" && href != "#" {
			return href
		}
	}
	return nodeText(n)
}

func isStrongLed(n *html.Node) bool {
	first := firstElementChild(n)
	return first != nil && (first.DataAtom == atom.Strong || first.DataAtom == atom.B)
}

// splitLabel splits "label：value", preferring the full-width colon
func splitLabel(line string) (string, string, bool) {
	idx, width := strings.Index(line, "："), len("：")
	if idx < 0 {
		idx, width = strings.Index(line, ":"), 1
	}
	if idx <= 0 {
		return "", "", false
	}
	label := strings.TrimSpace(line[:idx])
	if utf8.RuneCountInString(label) > maxLabelRunes {
		return "", "", false
	}
	return label, strings.TrimSpace(line[idx+width:]), true
}

func cleanLabel(s string) string {
	return strings.Trim(normalizeSpace(s), ":： ")
}

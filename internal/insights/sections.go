package insights

import "strings"

// Section is one titled block of the model's narrative.
type Section struct {
	Title string
	Body  string
}

// ParseSections splits a narrative on "####" headings. A block titled with
// **bold** text uses it as the title; otherwise the first line is the
// title. Text before the first heading is dropped.
func ParseSections(text string) []Section {
	text = cleanModelText(text)
	if !strings.Contains(text, "####") {
		return nil
	}

	var out []Section
	for _, block := range strings.Split(text, "####")[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		var title, body string
		if strings.HasPrefix(block, "**") {
			parts := strings.SplitN(block, "**", 3)
			title = parts[1]
			if len(parts) == 3 {
				body = parts[2]
			}
		} else {
			title, body, _ = strings.Cut(block, "\n")
		}

		title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), "*#:"))
		body = strings.TrimSpace(body)
		if title == "" {
			continue
		}
		out = append(out, Section{Title: title, Body: body})
	}
	return out
}

// SectionLines renders sections as two-column rows for a spreadsheet.
func SectionLines(sections []Section) [][]string {
	lines := make([][]string, len(sections))
	for i, s := range sections {
		lines[i] = []string{s.Title, s.Body}
	}
	return lines
}

// cleanModelText drops Markdown code fences the model sometimes wraps its
// answer in.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = s[idx+1:]
		if end := strings.LastIndex(s, "```"); end != -1 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

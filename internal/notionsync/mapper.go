package notionsync

import (
	"time"
	"unicode/utf8"

	"github.com/dvloznov/ledger-consolidation/internal/insights"
	"github.com/jomei/notionapi"
)

// Property names of the insights database.
const (
	propTitle       = "Title"
	propBody        = "Body"
	propRunID       = "Run ID"
	propPosition    = "Position"
	propGeneratedAt = "Generated At"
)

// maxRichTextLen is Notion's limit for the content of one text object.
const maxRichTextLen = 2000

// SectionToNotionProperties maps one insights section to page properties.
func SectionToNotionProperties(runID string, position int, s insights.Section, generatedAt time.Time) notionapi.Properties {
	ts := notionapi.Date(generatedAt.UTC())
	return notionapi.Properties{
		propTitle: notionapi.TitleProperty{
			Title: richText(s.Title),
		},
		propBody: notionapi.RichTextProperty{
			RichText: richText(s.Body),
		},
		propRunID: notionapi.RichTextProperty{
			RichText: richText(runID),
		},
		propPosition: notionapi.NumberProperty{
			Number: float64(position),
		},
		propGeneratedAt: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &ts},
		},
	}
}

// richText splits s into text objects within Notion's length limit.
func richText(s string) []notionapi.RichText {
	var out []notionapi.RichText
	for _, chunk := range chunkString(s, maxRichTextLen) {
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: chunk},
		})
	}
	return out
}

// chunkString splits s into pieces of at most n runes.
func chunkString(s string, n int) []string {
	if s == "" {
		return nil
	}
	var chunks []string
	for utf8.RuneCountInString(s) > n {
		cut := 0
		for i := 0; i < n; i++ {
			_, size := utf8.DecodeRuneInString(s[cut:])
			cut += size
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return append(chunks, s)
}

// extractRunID reads the Run ID property of a page, or "" when absent.
func extractRunID(page notionapi.Page) string {
	if prop, ok := page.Properties[propRunID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}

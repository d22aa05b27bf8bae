package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// PageStore is the part of a Notion database the publisher works with.
type PageStore interface {
	// ListPages returns every non-archived page of the database.
	ListPages(ctx context.Context, databaseID string) ([]notionapi.Page, error)
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	// ArchivePage moves a page to the trash.
	ArchivePage(ctx context.Context, pageID string) error
}

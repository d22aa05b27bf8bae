package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-consolidation/internal/insights"
	"github.com/dvloznov/ledger-consolidation/internal/logger"
)

// PublishResult counts what a publish did.
type PublishResult struct {
	Created  int
	Archived int
	Skipped  int
}

// Publisher writes insights sections to one Notion database.
type Publisher struct {
	pages      PageStore
	databaseID string
	now        func() time.Time
	dryRun     bool
}

// NewPublisher creates a Publisher. In dry-run mode nothing is written.
func NewPublisher(pages PageStore, databaseID string, dryRun bool) *Publisher {
	return &Publisher{pages: pages, databaseID: databaseID, now: time.Now, dryRun: dryRun}
}

// PublishSections creates one page per section for runID and archives the
// pages of every other run. Publishing the same run twice creates nothing.
func (p *Publisher) PublishSections(ctx context.Context, runID string, sections []insights.Section) (*PublishResult, error) {
	log := logger.FromContext(ctx).With().
		Str("run_id", runID).
		Bool("dry_run", p.dryRun).
		Logger()

	existing, err := p.pages.ListPages(ctx, p.databaseID)
	if err != nil {
		return nil, fmt.Errorf("PublishSections: %w", err)
	}

	res := &PublishResult{}
	alreadyPublished := false
	for _, page := range existing {
		if extractRunID(page) == runID {
			alreadyPublished = true
			continue
		}
		if p.dryRun {
			res.Archived++
			continue
		}
		if err := p.pages.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		res.Archived++
	}

	if alreadyPublished {
		res.Skipped = len(sections)
		log.Info().Msg("Run already published to Notion")
		return res, nil
	}

	generatedAt := p.now()
	for i, s := range sections {
		if p.dryRun {
			log.Info().Str("title", s.Title).Msg("[DRY RUN] Would create Notion page")
			res.Created++
			continue
		}

		page, err := p.pages.CreatePage(ctx, p.databaseID, SectionToNotionProperties(runID, i+1, s, generatedAt))
		if err != nil {
			return res, fmt.Errorf("PublishSections: creating page %q: %w", s.Title, err)
		}
		log.Debug().
			Str("title", s.Title).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("archived", res.Archived).
		Msg("Insights published to Notion")
	return res, nil
}

package fetchers

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/logger"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
)

// maxBulletins caps how many feed entries the index page shows.
const maxBulletins = 10

// BulletinFetcher pulls recent space-weather bulletins from the SIDC feed.
type BulletinFetcher struct {
	parser *gofeed.Parser
	url    string
	log    *logger.Logger
}

// NewBulletinFetcher creates a bulletin fetcher for the given feed URL.
func NewBulletinFetcher(url string) *BulletinFetcher {
	return &BulletinFetcher{
		parser: gofeed.NewParser(),
		url:    url,
		log:    logger.Component("bulletins"),
	}
}

// Fetch returns the latest bulletins, newest first. The bulletins are
// decoration on the index page, so a failing feed degrades to an empty list
// with a warning instead of an error.
func (b *BulletinFetcher) Fetch(ctx context.Context) []models.Bulletin {
	feed, err := b.parser.ParseURLWithContext(b.url, ctx)
	if err != nil {
		b.log.Warnf("bulletin feed unavailable: %v", err)
		return nil
	}

	bulletins := make([]models.Bulletin, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		published := time.Time{}
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}
		bulletins = append(bulletins, models.Bulletin{
			Title:     strings.TrimSpace(item.Title),
			Link:      item.Link,
			Published: published,
			Summary:   strings.TrimSpace(item.Description),
		})
		if len(bulletins) == maxBulletins {
			break
		}
	}
	return bulletins
}

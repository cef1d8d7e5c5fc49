package catalog

import (
	"context"

	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/substance"
)

// Fetcher fetches one page of a collection
type Fetcher interface {
	Collection(ctx context.Context, bearer, collectionID string, page, limit int) (*substance.Collection, error)
}

// TokenSource supplies the bearer token for catalog requests
type TokenSource interface {
	AccessToken() string
}

// PageFunc is called for every fetched page, in order. Returning an error
// stops the walk and Walk returns that error.
type PageFunc func(page int, col *substance.Collection) error

// Client walks collections page by page
type Client struct {
	fetcher Fetcher
	logger  logger.Logger
}

// NewClient creates a catalog client
func NewClient(fetcher Fetcher, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Client{
		fetcher: fetcher,
		logger:  log.WithField("component", "catalog"),
	}
}

// FetchPage fetches page (0-based) of the collection with limit items per page
func (c *Client) FetchPage(ctx context.Context, src TokenSource, collectionID string, page, limit int) (*substance.Collection, error) {
	if collectionID == "" {
		return nil, errs.New(errs.ErrorTypeInvalid, "collection id is required")
	}
	if page < 0 {
		return nil, errs.Newf(errs.ErrorTypeInvalid, "page must not be negative, got %d", page)
	}
	if limit <= 0 {
		return nil, errs.Newf(errs.ErrorTypeInvalid, "limit must be positive, got %d", limit)
	}

	return c.fetcher.Collection(ctx, src.AccessToken(), collectionID, page, limit)
}

// Walk fetches pages 0, 1, 2... while the server reports more, passing each
// to fn. A page that reports more but holds no items ends the walk, since
// the next page index would never advance past it.
func (c *Client) Walk(ctx context.Context, src TokenSource, collectionID string, limit int, fn PageFunc) error {
	log := c.logger.WithField("collection_id", collectionID)

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		col, err := c.FetchPage(ctx, src, collectionID, page, limit)
		if err != nil {
			return err
		}

		log.DebugWithFields("Page fetched", map[string]interface{}{
			"page":     page,
			"pages":    PageCount(col.Assets.Total, limit),
			"items":    len(col.Assets.Items),
			"total":    col.Assets.Total,
			"has_more": col.Assets.HasMore,
		})

		if err := fn(page, col); err != nil {
			return err
		}

		if !col.Assets.HasMore {
			return nil
		}
		if len(col.Assets.Items) == 0 {
			log.WarnWithFields("Server reports more pages but returned an empty page; stopping", map[string]interface{}{
				"page": page,
			})
			return nil
		}
	}
}

// PageCount returns how many pages of limit items hold total items
func PageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/substance"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

type pageRequest struct {
	bearer string
	page   int
	limit  int
}

// fakeCatalog serves total items in pages of limit, like the real API
type fakeCatalog struct {
	total    int
	requests []pageRequest
	override func(page int) (*substance.Collection, error)
}

func (f *fakeCatalog) Collection(ctx context.Context, bearer, collectionID string, page, limit int) (*substance.Collection, error) {
	f.requests = append(f.requests, pageRequest{bearer, page, limit})
	if f.override != nil {
		return f.override(page)
	}

	start := page * limit
	end := start + limit
	if end > f.total {
		end = f.total
	}
	var items []substance.AssetItem
	for i := start; i < end; i++ {
		items = append(items, substance.AssetItem{ID: fmt.Sprintf("a-%d", i), Title: fmt.Sprintf("Asset %d", i)})
	}
	return &substance.Collection{
		ID:    collectionID,
		Title: "Collection",
		Assets: substance.AssetPage{
			Total:   f.total,
			HasMore: end < f.total,
			Items:   items,
		},
	}, nil
}

func TestWalkVisitsEveryPage(t *testing.T) {
	fake := &fakeCatalog{total: 125}
	client := NewClient(fake, logger.NewNopLogger())

	var pages []int
	seen := map[string]bool{}
	err := client.Walk(context.Background(), staticToken("tok"), "col", 60, func(page int, col *substance.Collection) error {
		pages = append(pages, page)
		for _, item := range col.Assets.Items {
			seen[item.ID] = true
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, pages)
	assert.Len(t, seen, 125)
	assert.Equal(t, []pageRequest{{"tok", 0, 60}, {"tok", 1, 60}, {"tok", 2, 60}}, fake.requests)
}

func TestWalkSinglePage(t *testing.T) {
	fake := &fakeCatalog{total: 3}
	client := NewClient(fake, logger.NewNopLogger())

	calls := 0
	err := client.Walk(context.Background(), staticToken("tok"), "col", 60, func(int, *substance.Collection) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWalkStopsOnEmptyPageWithHasMore(t *testing.T) {
	fake := &fakeCatalog{override: func(page int) (*substance.Collection, error) {
		return &substance.Collection{ID: "col", Title: "T", Assets: substance.AssetPage{Total: 10, HasMore: true}}, nil
	}}
	tl := logger.NewTestLogger()
	client := NewClient(fake, tl)

	err := client.Walk(context.Background(), staticToken("tok"), "col", 60, func(int, *substance.Collection) error { return nil })
	require.NoError(t, err)
	assert.Len(t, fake.requests, 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}

func TestWalkPropagatesErrors(t *testing.T) {
	t.Run("fetch error", func(t *testing.T) {
		fake := &fakeCatalog{override: func(page int) (*substance.Collection, error) {
			return nil, errs.Newf(errs.ErrorTypeNotFound, "collection missing")
		}}
		client := NewClient(fake, logger.NewNopLogger())

		err := client.Walk(context.Background(), staticToken("tok"), "missing", 60, func(int, *substance.Collection) error {
			t.Fatal("callback must not run")
			return nil
		})
		assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
	})

	t.Run("callback error", func(t *testing.T) {
		fake := &fakeCatalog{total: 200}
		client := NewClient(fake, logger.NewNopLogger())
		stop := errors.New("stop")

		err := client.Walk(context.Background(), staticToken("tok"), "col", 60, func(page int, _ *substance.Collection) error {
			if page == 1 {
				return stop
			}
			return nil
		})
		assert.ErrorIs(t, err, stop)
		assert.Len(t, fake.requests, 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		fake := &fakeCatalog{total: 200}
		client := NewClient(fake, logger.NewNopLogger())
		ctx, cancel := context.WithCancel(context.Background())

		err := client.Walk(ctx, staticToken("tok"), "col", 60, func(int, *substance.Collection) error {
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, fake.requests, 1)
	})
}

func TestFetchPageValidatesArguments(t *testing.T) {
	client := NewClient(&fakeCatalog{total: 1}, logger.NewNopLogger())

	_, err := client.FetchPage(context.Background(), staticToken("tok"), "col", -1, 60)
	assert.True(t, errs.Is(err, errs.ErrorTypeInvalid))

	_, err = client.FetchPage(context.Background(), staticToken("tok"), "col", 0, 0)
	assert.True(t, errs.Is(err, errs.ErrorTypeInvalid))

	_, err = client.FetchPage(context.Background(), staticToken("tok"), "", 0, 60)
	assert.True(t, errs.Is(err, errs.ErrorTypeInvalid))

	col, err := client.FetchPage(context.Background(), staticToken("tok"), "col", 0, 60)
	require.NoError(t, err)
	assert.Len(t, col.Assets.Items, 1)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 3, PageCount(125, 60))
	assert.Equal(t, 2, PageCount(120, 60))
	assert.Equal(t, 1, PageCount(1, 60))
	assert.Equal(t, 0, PageCount(0, 60))
	assert.Equal(t, 0, PageCount(10, 0))
}

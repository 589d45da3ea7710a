package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrStop can be returned by a page callback to end a walk without error.
	ErrStop = errors.New("stop pagination")

	// ErrPageLimit is returned when MaxPages pages were read and more remain.
	ErrPageLimit = errors.New("page limit reached")
)

// Config holds walker configuration.
type Config struct {
	// MaxPages bounds the number of pages read. Zero means unbounded.
	MaxPages int

	// Timeout per page fetch. Throttled pages can wait over a minute for a
	// token, so this should be generous.
	Timeout time.Duration
}

// DefaultConfig returns the default walker configuration.
func DefaultConfig() Config {
	return Config{
		MaxPages: 100,
		Timeout:  5 * time.Minute,
	}
}

// PageFetcher fetches the pages of one paginated listing.
type PageFetcher[T any] interface {
	// FetchFirst fetches the first page and returns its items and NextToken.
	FetchFirst(ctx context.Context) (items []T, nextToken string, err error)

	// FetchNext fetches the page named by nextToken.
	FetchNext(ctx context.Context, nextToken string) (items []T, next string, err error)
}

// Page is one fetched page.
type Page[T any] struct {
	Number    int
	Items     []T
	NextToken string
}

// Walker follows NextToken through a paginated listing.
type Walker[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewWalker creates a new walker.
func NewWalker[T any](fetcher PageFetcher[T], config Config) *Walker[T] {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	return &Walker[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// Walk fetches pages in order and hands each to fn. It returns the number
// of pages handed to fn.
func (w *Walker[T]) Walk(ctx context.Context, fn func(Page[T]) error) (int, error) {
	start := time.Now()
	token := ""

	for number := 1; ; number++ {
		if w.config.MaxPages > 0 && number > w.config.MaxPages {
			log.Warn().
				Int("max_pages", w.config.MaxPages).
				Msg("Pagination stopped at page limit")
			return number - 1, fmt.Errorf("%w: %d pages", ErrPageLimit, w.config.MaxPages)
		}

		items, next, err := w.fetch(ctx, number, token)
		if err != nil {
			return number - 1, fmt.Errorf("fetch page %d: %w", number, err)
		}

		log.Debug().
			Int("page", number).
			Int("items", len(items)).
			Bool("more", next != "").
			Msg("Fetched page")

		if err := fn(Page[T]{Number: number, Items: items, NextToken: next}); err != nil {
			if errors.Is(err, ErrStop) {
				return number, nil
			}
			return number, err
		}

		if next == "" {
			log.Info().
				Int("pages", number).
				Dur("duration", time.Since(start)).
				Msg("Pagination complete")
			return number, nil
		}
		token = next
	}
}

// FetchAll collects the items of every page. On ErrPageLimit the items
// read so far are returned along with the error.
func (w *Walker[T]) FetchAll(ctx context.Context) ([]T, error) {
	var all []T
	_, err := w.Walk(ctx, func(p Page[T]) error {
		all = append(all, p.Items...)
		return nil
	})
	return all, err
}

func (w *Walker[T]) fetch(ctx context.Context, number int, token string) ([]T, string, error) {
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}
	if number == 1 {
		return w.fetcher.FetchFirst(ctx)
	}
	return w.fetcher.FetchNext(ctx, token)
}

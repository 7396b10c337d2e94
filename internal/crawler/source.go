package crawler

import (
	"context"

	"github.com/nao1215/wordcrawl/internal/model"
)

// PageSource fetches a page and returns its word counts and outbound links.
//
// Implementations must be safe for concurrent use. The crawler makes no
// assumption about transport, encoding or caching; a returned error marks
// the page as a fetch failure and ends that branch of the crawl.
type PageSource interface {
	Fetch(ctx context.Context, url string) (*model.PageResult, error)
}

// PageSourceFunc adapts a plain function to the PageSource interface.
type PageSourceFunc func(ctx context.Context, url string) (*model.PageResult, error)

// Fetch calls f(ctx, url).
func (f PageSourceFunc) Fetch(ctx context.Context, url string) (*model.PageResult, error) {
	return f(ctx, url)
}

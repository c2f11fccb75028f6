package fetcher

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/product-scraper/internal/resilience"
)

var (
	// ErrStatus marks a response with a non-2xx status.
	ErrStatus = eris.New("unexpected status")
	// ErrBlocked marks a page served to a bot instead of the product.
	ErrBlocked = eris.New("blocked by anti-bot page")
)

// FetchError describes why one URL produced no usable page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status the fetch failed with, or 0.
func (e *FetchError) HTTPStatus() int {
	return e.StatusCode
}

// IsTransient reports whether a fetch failure looks temporary.
func IsTransient(err error) bool {
	return resilience.IsTransient(err)
}

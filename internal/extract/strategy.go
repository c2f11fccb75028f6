// Package extract resolves product fields from a parsed page by trying
// ordered, named strategies per field until one succeeds.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/product-scraper/internal/model"
)

// Strategy is one named way of reading a field from a document. Fn reports
// false when the markup it looks for is absent or malformed. Strategies must
// not mutate the document.
type Strategy[T comparable] struct {
	Name string
	Fn   func(doc *goquery.Document) (T, bool)
}

// Chain is the ordered list of strategies for one field.
type Chain[T comparable] struct {
	Field      string
	Strategies []Strategy[T]
}

// NewChain creates a Chain. Strategies are tried in the given order.
func NewChain[T comparable](field string, strategies ...Strategy[T]) Chain[T] {
	return Chain[T]{Field: field, Strategies: strategies}
}

// Names returns the strategy names in evaluation order.
func (c Chain[T]) Names() []string {
	names := make([]string, len(c.Strategies))
	for i, s := range c.Strategies {
		names[i] = s.Name
	}
	return names
}

// Resolve returns the first non-empty strategy result and the name of the
// strategy that produced it. When every strategy misses, the field is the
// unavailable sentinel and the name is empty.
func (c Chain[T]) Resolve(doc *goquery.Document) (model.Field[T], string) {
	if doc == nil {
		return model.None[T](), ""
	}
	for _, s := range c.Strategies {
		v, ok := try(s, doc)
		if ok && !isBlank(v) {
			return model.Some(v), s.Name
		}
		zap.L().Debug("extract: strategy missed, trying next",
			zap.String("field", c.Field),
			zap.String("strategy", s.Name),
		)
	}
	return model.None[T](), ""
}

// try runs one strategy. A panic inside a strategy counts as a miss.
func try[T comparable](s Strategy[T], doc *goquery.Document) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Debug("extract: strategy panicked",
				zap.String("strategy", s.Name),
				zap.Any("panic", r),
			)
			var zero T
			v, ok = zero, false
		}
	}()
	return s.Fn(doc)
}

// isBlank rejects empty and whitespace-only strings. Other types are never
// blank; their strategies signal failure through ok.
func isBlank(v any) bool {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x) == ""
	case model.UnitPrice:
		return !x.Valid()
	}
	return false
}

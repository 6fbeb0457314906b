package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"brokeometer/internal/cache"
	"brokeometer/internal/core"
)

// CachedGenerator reuses answers for identical inputs. Fallback answers are
// not cached so the next request retries the model.
type CachedGenerator struct {
	next  Generator
	cache cache.Cache[string]
}

var _ Generator = (*CachedGenerator)(nil)

func NewCachedGenerator(next Generator, c cache.Cache[string]) *CachedGenerator {
	return &CachedGenerator{next: next, cache: c}
}

func (g *CachedGenerator) Generate(ctx context.Context, expenses []core.Expense, b core.UserBudget, period string) string {
	key, ok := fingerprint(expenses, b, period)
	if ok {
		if text, hit := g.cache.Get(key); hit {
			return text
		}
	}

	text := g.next.Generate(ctx, expenses, b, period)
	if ok && text != FallbackText && text != EmptyText {
		g.cache.Set(key, text)
	}
	return text
}

func fingerprint(expenses []core.Expense, b core.UserBudget, period string) (string, bool) {
	body, err := json.Marshal(struct {
		Expenses []core.Expense
		Limit    float64
		Period   string
	}{expenses, b.MonthlyLimit, period})
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), true
}

package conditional

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes parsed expressions by their source text. Syntax errors are
// remembered as well. A Cache is safe for concurrent use, and the Exprs it
// returns may be shared between goroutines.
//
// A Cache is only an optimization: parsing the same text without one gives an
// equivalent result.
type Cache struct {
	lru    *lru.Cache[string, parsed]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// parsed is the result of parsing one source text.
type parsed struct {
	e   *Expr
	err error
}

// NewCache creates a cache holding up to size expressions. The least recently
// used expression is evicted when the cache is full. size must be positive.
func NewCache(size int) (*Cache, error) {
	l, err := lru.New[string, parsed](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Parse parses src or returns the result of parsing it earlier.
func (c *Cache) Parse(src string) (*Expr, error) {
	if r, ok := c.lru.Get(src); ok {
		c.hits.Add(1)
		return r.e, r.err
	}
	c.misses.Add(1)
	e, err := ParseString(src)
	c.lru.Add(src, parsed{e: e, err: err})
	return e, err
}

// Eval parses src through the cache and evaluates it with env.
func (c *Cache) Eval(src string, env Env) (Value, error) {
	a, err := c.Parse(src)
	if err != nil {
		return nil, err
	}
	return a.Eval(env)
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge removes every cached expression. Statistics are kept.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats returns the number of calls to Parse that found a cached result and
// the number that parsed.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

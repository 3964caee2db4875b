package mvn

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Cache holds the factorization of a prior's matrix across
// evaluations. The factorization is computed on first use and kept
// until the cache is invalidated; the owner must call Invalidate or
// Reset whenever the matrix changes. A failed factorization is
// cached as well, so a malformed matrix is reported on every use
// without being refactorized.
//
// A Cache is safe for concurrent use; Clone gives each worker a cold
// cache of its own.
type Cache struct {
	mu     sync.Mutex
	prior  Prior
	valid  bool
	factor *Factor
	err    error
}

// NewCache returns a stale cache for prior.
func NewCache(prior Prior) *Cache {
	return &Cache{prior: prior}
}

// Factor returns the factorization, computing it if the cache is
// stale.
func (c *Cache) Factor() (*Factor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		c.factor, c.err = c.prior.Factorize()
		c.valid = true
	}
	return c.factor, c.err
}

// Valid reports whether the factorization is computed and current.
func (c *Cache) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// Invalidate marks the factorization stale, for a matrix modified
// in place.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.factor, c.err = nil, nil
}

// Reset replaces the prior's matrix and marks the factorization
// stale.
func (c *Cache) Reset(matrix mat.Symmetric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prior.Matrix = matrix
	c.valid = false
	c.factor, c.err = nil, nil
}

// Prior returns the cached prior.
func (c *Cache) Prior() Prior {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prior
}

// Clone returns a stale cache over the same prior.
func (c *Cache) Clone() *Cache {
	return NewCache(c.Prior())
}

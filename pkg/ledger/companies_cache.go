package ledger

import "sync"

// companiesCache memoizes the active company list. Companies are reference
// data that the application never mutates, so entries stay valid until
// invalidate is called.
type companiesCache struct {
	mu        sync.RWMutex
	companies []Company
	valid     bool
}

func newCompaniesCache() *companiesCache {
	return &companiesCache{}
}

func (c *companiesCache) get() ([]Company, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return nil, false
	}
	return append([]Company(nil), c.companies...), true
}

func (c *companiesCache) set(items []Company) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.companies = append([]Company(nil), items...)
	c.valid = true
}

func (c *companiesCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.companies = nil
	c.valid = false
}

package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// ResponseCache is a bounded, LRU-evicting memo of prior answers. It
// avoids repeated embedding/LLM round trips for identical questions
// within a process lifetime. Entries never expire or invalidate when the
// knowledge base changes; that staleness is accepted.
type ResponseCache struct {
	entries *lru.Cache[string, domain.Answer]
}

func New(capacity int) (*ResponseCache, error) {
	if capacity <= 0 {
		capacity = 100
	}
	entries, err := lru.New[string, domain.Answer](capacity)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{entries: entries}, nil
}

func (c *ResponseCache) Get(key string) (domain.Answer, bool) {
	return c.entries.Get(key)
}

// Put inserts at the cost of the least recently used entry once the
// cache is full. Entries are copied in by value and never mutated.
func (c *ResponseCache) Put(key string, answer domain.Answer) {
	c.entries.Add(key, answer)
}

func (c *ResponseCache) Len() int {
	return c.entries.Len()
}

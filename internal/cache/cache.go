package cache

import (
	"log"
	"sync"
	"time"
)

// QueryCache - кэш результатов запросов к бэкенд-API, помеченных логическими
// тегами ("owner", "owner-calculation", "trucks", "statement"). Мутации не
// трогают сами записи: они инвалидируют теги, и зависимые чтения
// перезагружают данные при следующем обращении.
// QueryCache caches upstream API query results keyed by logical tags.
// Mutations invalidate tags; dependent reads refetch on next access.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     interface{}
	tags      []string
	expiresAt time.Time
}

// New создает пустой кэш запросов.
func New() *QueryCache {
	return &QueryCache{entries: make(map[string]entry)}
}

// Get возвращает значение по ключу, если оно есть и не протухло.
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set сохраняет значение с TTL и набором тегов, по которым его можно
// инвалидировать.
func (c *QueryCache) Set(key string, value interface{}, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		value:     value,
		tags:      tags,
		expiresAt: time.Now().Add(ttl),
	}
}

// Invalidate удаляет все записи, помеченные хотя бы одним из тегов.
// Возвращает количество удалённых записей.
func (c *QueryCache) Invalidate(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[t] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		for _, t := range e.tags {
			if wanted[t] {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	if removed > 0 {
		log.Printf("QueryCache.Invalidate: теги %v, удалено записей: %d", tags, removed)
	}
	return removed
}

// CleanExpired удаляет протухшие записи. Вызывается периодически из main.
func (c *QueryCache) CleanExpired() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Size возвращает текущее количество записей.
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

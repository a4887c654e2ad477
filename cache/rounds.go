package cache

import (
	"sync"
	"time"

	"github.com/kuanyshev/lastman-system/models"
)

// RoundCache кэширует туры соревнования между запросами. Кэш чисто
// advisory: классификатор обязан выдавать корректный результат и с
// пустым кэшем, поэтому в тестах используется NoopRoundCache.
type RoundCache interface {
	Get(competitionID int) ([]models.Round, bool)
	Set(competitionID int, rounds []models.Round)
	Invalidate(competitionID int)
}

type cacheItem struct {
	rounds    []models.Round
	expiresAt time.Time
}

func (item *cacheItem) isExpired(now time.Time) bool {
	return now.After(item.expiresAt)
}

// TTLRoundCache — потокобезопасный кэш туров с фиксированным TTL.
type TTLRoundCache struct {
	mu    sync.RWMutex
	items map[int]*cacheItem
	ttl   time.Duration
}

func NewTTLRoundCache(ttl time.Duration) *TTLRoundCache {
	return &TTLRoundCache{
		items: make(map[int]*cacheItem),
		ttl:   ttl,
	}
}

func (c *TTLRoundCache) Get(competitionID int) ([]models.Round, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[competitionID]
	if !exists || item.isExpired(time.Now()) {
		return nil, false
	}

	// Копия, чтобы вызывающий не мутировал закэшированный слайс.
	rounds := make([]models.Round, len(item.rounds))
	copy(rounds, item.rounds)
	return rounds, true
}

func (c *TTLRoundCache) Set(competitionID int, rounds []models.Round) {
	if c.ttl <= 0 {
		return
	}

	stored := make([]models.Round, len(rounds))
	copy(stored, rounds)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[competitionID] = &cacheItem{
		rounds:    stored,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *TTLRoundCache) Invalidate(competitionID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, competitionID)
}

// NoopRoundCache никогда ничего не кэширует.
type NoopRoundCache struct{}

func (NoopRoundCache) Get(int) ([]models.Round, bool) { return nil, false }
func (NoopRoundCache) Set(int, []models.Round)        {}
func (NoopRoundCache) Invalidate(int)                 {}

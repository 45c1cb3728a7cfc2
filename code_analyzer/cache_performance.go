package code_analyzer

import (
	"time"
)

// recordLookup counts one parse-cache lookup. A hit also counts the source bytes
// the grammar did not have to parse.
func (cm *CacheManager) recordLookup(hit bool, sourceLen int) {
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()

	cm.stats.TotalRequests++
	if hit {
		cm.stats.CacheHits++
		cm.stats.BytesSkipped += int64(sourceLen)
		return
	}
	cm.stats.CacheMisses++
}

func (cm *CacheManager) recordStore() {
	cm.stats.mutex.Lock()
	cm.stats.TreesStored++
	cm.stats.mutex.Unlock()
}

// GetPerformanceStats reports lookups, hit rate and parse work saved since the last reset.
func (cm *CacheManager) GetPerformanceStats() map[string]interface{} {
	cm.stats.mutex.RLock()
	defer cm.stats.mutex.RUnlock()

	var hitRate float64
	if cm.stats.TotalRequests > 0 {
		hitRate = float64(cm.stats.CacheHits) / float64(cm.stats.TotalRequests) * 100
	}

	return map[string]interface{}{
		"total_requests": cm.stats.TotalRequests,
		"cache_hits":     cm.stats.CacheHits,
		"cache_misses":   cm.stats.CacheMisses,
		"trees_stored":   cm.stats.TreesStored,
		"bytes_skipped":  cm.stats.BytesSkipped,
		"hit_rate":       hitRate,
		"uptime_human":   time.Since(cm.stats.LastResetTime).Round(time.Second).String(),
		"last_reset":     cm.stats.LastResetTime.Format(time.RFC3339),
	}
}

// ResetPerformanceStats zeroes the counters; cached trees are kept.
func (cm *CacheManager) ResetPerformanceStats() {
	cm.stats.mutex.Lock()
	defer cm.stats.mutex.Unlock()

	cm.stats.TotalRequests = 0
	cm.stats.CacheHits = 0
	cm.stats.CacheMisses = 0
	cm.stats.TreesStored = 0
	cm.stats.BytesSkipped = 0
	cm.stats.LastResetTime = time.Now()
}

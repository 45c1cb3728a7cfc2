package code_analyzer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meysamhadeli/astview/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

// parseCacheVersion invalidates cached trees whenever the tree conversion changes shape.
const parseCacheVersion = 3

// CacheEntry represents a cached parse tree with metadata
type CacheEntry struct {
	Version   int
	SourceLen int
	Tree      *models.RawNode
	Timestamp time.Time
}

// FileCache manages gob files keyed by a hash of the source text
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheStats counts parse-cache lookups since LastResetTime.
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	TreesStored   int64
	BytesSkipped  int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager provides high-level caching operations
type CacheManager struct {
	fileCache *FileCache
	stats     *CacheStats

	// autoCleanup runs at startup and again after every cleanupEvery stores.
	autoCleanup  CacheCleanupOptions
	cleanupEvery int64
	storesSince  atomic.Int64
}

// autoCleanupEvery bounds the cache of a long interactive session, which stores a tree per edit.
const autoCleanupEvery = 100

var defaultAutoCleanup = CacheCleanupOptions{
	MaxAge:   7 * 24 * time.Hour,
	MaxFiles: 1000,
}

// NewCacheManager creates a new cache manager instance
// If cacheDir is empty, it defaults to ".cache" directory in the current working directory
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	return newCacheManager(cacheDir, autoCleanupEvery, defaultAutoCleanup)
}

func newCacheManager(cacheDir string, cleanupEvery int64, cleanup CacheCleanupOptions) (*CacheManager, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".cache")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cacheManager := &CacheManager{
		fileCache: &FileCache{cacheDir: cacheDir},
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
		autoCleanup:  cleanup,
		cleanupEvery: cleanupEvery,
	}

	// Perform automatic cleanup on initialization (background cleanup)
	go cacheManager.performAutoCleanup()

	return cacheManager, nil
}

// generateCacheKey creates a unique cache key for a source text
func (fc *FileCache) generateCacheKey(source string) string {
	hash := xxh3.HashString128(source)
	return fmt.Sprintf("%016x%016x.cache", hash.Hi, hash.Lo)
}

// getCachePath returns the full path to a cache file
func (fc *FileCache) getCachePath(cacheKey string) string {
	return filepath.Join(fc.cacheDir, cacheKey)
}

// Get retrieves a parse tree, returns false if not found or stale
func (fc *FileCache) Get(source string) (*models.RawNode, bool) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	cachePath := fc.getCachePath(fc.generateCacheKey(source))

	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}

	if entry.Version != parseCacheVersion || entry.SourceLen != len(source) || entry.Tree == nil {
		return nil, false
	}

	return entry.Tree, true
}

// Set stores a parse tree for the given source text
func (fc *FileCache) Set(source string, tree *models.RawNode) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	entry := CacheEntry{
		Version:   parseCacheVersion,
		SourceLen: len(source),
		Tree:      tree,
		Timestamp: time.Now(),
	}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	cachePath := fc.getCachePath(fc.generateCacheKey(source))
	if err := os.WriteFile(cachePath, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (fc *FileCache) Delete(source string) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	cachePath := fc.getCachePath(fc.generateCacheKey(source))
	if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	return nil
}

// GetParseCache retrieves a cached parse tree for source
func (cm *CacheManager) GetParseCache(source string) (*models.RawNode, bool) {
	tree, found := cm.fileCache.Get(source)
	cm.recordLookup(found, len(source))
	return tree, found
}

// SetParseCache stores a parse tree for source
func (cm *CacheManager) SetParseCache(source string, tree *models.RawNode) error {
	if err := cm.fileCache.Set(source, tree); err != nil {
		return err
	}
	cm.recordStore()
	if cm.cleanupEvery > 0 && cm.storesSince.Add(1)%cm.cleanupEvery == 0 {
		cm.performAutoCleanup()
	}
	return nil
}

// GetCacheStats returns cache storage statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	cm.fileCache.mutex.RLock()
	defer cm.fileCache.mutex.RUnlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	var count int
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".cache") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		totalSize += info.Size()
		count++
	}

	return map[string]interface{}{
		"cache_files": count,
		"total_size":  totalSize,
		"cache_dir":   cm.fileCache.cacheDir,
	}, nil
}

// CacheCleanupOptions defines options for cache cleanup
type CacheCleanupOptions struct {
	MaxAge   time.Duration // Remove entries older than this
	MaxFiles int           // Remove oldest entries if cache exceeds this number of files
	DryRun   bool          // If true, only report what would be cleaned without actual deletion
}

// SmartCleanupCache removes expired entries, then the oldest ones above MaxFiles
func (cm *CacheManager) SmartCleanupCache(options CacheCleanupOptions) (map[string]interface{}, error) {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}

	var fileInfos []fileInfo
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".cache") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		fileInfos = append(fileInfos, fileInfo{
			path:    filepath.Join(cm.fileCache.cacheDir, file.Name()),
			modTime: info.ModTime(),
		})
	}

	// Oldest first
	sort.Slice(fileInfos, func(i, j int) bool {
		return fileInfos[i].modTime.Before(fileInfos[j].modTime)
	})

	var toDelete []string
	var deletedByAge, deletedByCount int
	remaining := fileInfos[:0:0]

	if options.MaxAge > 0 {
		cutoff := time.Now().Add(-options.MaxAge)
		for _, f := range fileInfos {
			if f.modTime.Before(cutoff) {
				toDelete = append(toDelete, f.path)
				deletedByAge++
			} else {
				remaining = append(remaining, f)
			}
		}
	} else {
		remaining = append(remaining, fileInfos...)
	}

	if options.MaxFiles > 0 && len(remaining) > options.MaxFiles {
		excess := len(remaining) - options.MaxFiles
		for _, f := range remaining[:excess] {
			toDelete = append(toDelete, f.path)
			deletedByCount++
		}
	}

	actuallyDeleted := 0
	if !options.DryRun {
		for _, path := range toDelete {
			if err := os.Remove(path); err == nil {
				actuallyDeleted++
			}
		}
	} else {
		actuallyDeleted = len(toDelete)
	}

	return map[string]interface{}{
		"files_before_cleanup":    len(fileInfos),
		"files_marked_for_delete": len(toDelete),
		"files_actually_deleted":  actuallyDeleted,
		"deleted_by_age":          deletedByAge,
		"deleted_by_count":        deletedByCount,
		"dry_run":                 options.DryRun,
	}, nil
}

// performAutoCleanup applies the manager's conservative cleanup options
func (cm *CacheManager) performAutoCleanup() {
	_, _ = cm.SmartCleanupCache(cm.autoCleanup)
}

// ClearCache completely removes all cache entries
func (cm *CacheManager) ClearCache() error {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".cache") {
			continue
		}
		if err := os.Remove(filepath.Join(cm.fileCache.cacheDir, file.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}

	return nil
}

package commentrepo

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// multiLevelCache implements the L1(type+season+region)/L2(type+season)/
// L3(type) query cache from spec §4.4, grounded on original_source's
// multilevel_comment_cache.py, generalized from Python's OrderedDict-LRU
// to a small TTL map guarded by a single mutex, following the teacher's
// reentrant-mutex convention for cache layers (spec §5).
type multiLevelCache struct {
	mu sync.Mutex
	l1 map[string]cacheBucket
	l2 map[string]cacheBucket
	l3 map[string]cacheBucket

	l1TTL, l2TTL, l3TTL time.Duration

	statsL1, statsL2, statsL3, misses int64
}

type cacheBucket struct {
	comments  []model.PastComment
	expiresAt time.Time
}

func newMultiLevelCache(baseTTL time.Duration) *multiLevelCache {
	if baseTTL <= 0 {
		baseTTL = 60 * time.Minute
	}
	return &multiLevelCache{
		l1:    make(map[string]cacheBucket),
		l2:    make(map[string]cacheBucket),
		l3:    make(map[string]cacheBucket),
		l1TTL: baseTTL,
		l2TTL: baseTTL * 2,
		l3TTL: baseTTL * 3,
	}
}

func keys(commentType model.CommentType, season, region string) (l1, l2, l3 string) {
	l3 = fmt.Sprintf("type:%s", commentType)
	l2 = fmt.Sprintf("%s:season:%s", l3, orAll(season))
	l1 = fmt.Sprintf("%s:region:%s", l2, orAll(region))
	return
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

// get checks L1 (if region given) -> L2 (if season given, filtering by
// region if needed, populating L1) -> L3 (if type given, filtering by
// season/region, populating L2+L1) -> miss.
func (c *multiLevelCache) get(commentType model.CommentType, season, region string) ([]model.PastComment, bool) {
	l1Key, l2Key, l3Key := keys(commentType, season, region)

	c.mu.Lock()
	defer c.mu.Unlock()

	if region != "" {
		if b, ok := c.l1[l1Key]; ok && time.Now().Before(b.expiresAt) {
			c.statsL1++
			return b.comments, true
		}
	}

	if season != "" {
		if b, ok := c.l2[l2Key]; ok && time.Now().Before(b.expiresAt) {
			c.statsL2++
			result := b.comments
			if region != "" {
				result = filterByRegion(result, region)
				c.l1[l1Key] = cacheBucket{comments: result, expiresAt: time.Now().Add(c.l1TTL)}
			}
			return result, true
		}
	}

	if b, ok := c.l3[l3Key]; ok && time.Now().Before(b.expiresAt) {
		c.statsL3++
		result := b.comments
		if season != "" {
			result = filterBySeason(result, season)
		}
		if region != "" {
			result = filterByRegion(result, region)
		}
		if season != "" {
			c.l2[l2Key] = cacheBucket{comments: result, expiresAt: time.Now().Add(c.l2TTL)}
		}
		if region != "" {
			c.l1[l1Key] = cacheBucket{comments: result, expiresAt: time.Now().Add(c.l1TTL)}
		}
		return result, true
	}

	c.misses++
	return nil, false
}

// set populates only the most-specific applicable level, mirroring the
// Python implementation's set() semantics.
func (c *multiLevelCache) set(comments []model.PastComment, commentType model.CommentType, season, region string) {
	l1Key, l2Key, l3Key := keys(commentType, season, region)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case region != "":
		c.l1[l1Key] = cacheBucket{comments: comments, expiresAt: time.Now().Add(c.l1TTL)}
	case season != "":
		c.l2[l2Key] = cacheBucket{comments: comments, expiresAt: time.Now().Add(c.l2TTL)}
	case commentType != "":
		c.l3[l3Key] = cacheBucket{comments: comments, expiresAt: time.Now().Add(c.l3TTL)}
	}
}

// invalidate removes entries by key prefix across all levels.
func (c *multiLevelCache) invalidate(commentType model.CommentType) int {
	prefix := fmt.Sprintf("type:%s", commentType)
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for k := range c.l1 {
		if strings.HasPrefix(k, prefix) {
			delete(c.l1, k)
			count++
		}
	}
	for k := range c.l2 {
		if strings.HasPrefix(k, prefix) {
			delete(c.l2, k)
			count++
		}
	}
	for k := range c.l3 {
		if strings.HasPrefix(k, prefix) {
			delete(c.l3, k)
			count++
		}
	}
	return count
}

func filterBySeason(comments []model.PastComment, season string) []model.PastComment {
	out := make([]model.PastComment, 0, len(comments))
	for _, c := range comments {
		if c.Season == season {
			out = append(out, c)
		}
	}
	return out
}

func filterByRegion(comments []model.PastComment, region string) []model.PastComment {
	out := make([]model.PastComment, 0, len(comments))
	for _, c := range comments {
		if c.Raw["region"] == region || c.Raw["region"] == "" {
			out = append(out, c)
		}
	}
	return out
}

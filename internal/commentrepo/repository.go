package commentrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kjstillabower/weather-alert-service/internal/model"
)

// Seasons enumerates the corpus's fixed season keys (spec §4.4).
var Seasons = []string{"春", "夏", "秋", "冬", "梅雨", "台風"}

// Repository loads the seasonal CSV corpus and serves queries through the
// multi-level cache. Corresponds to spec §4.4's comment repository.
type Repository struct {
	dir   string
	cache *multiLevelCache

	mu      sync.Mutex
	indexes map[string]*fileIndex // keyed by season+type
}

// New constructs a Repository rooted at dir (containing files named
// {season}_{type}_enhanced100.csv).
func New(dir string, cacheTTL time.Duration) *Repository {
	return &Repository{
		dir:     dir,
		cache:   newMultiLevelCache(cacheTTL),
		indexes: make(map[string]*fileIndex),
	}
}

func (r *Repository) corpusPath(season string, commentType model.CommentType) string {
	return filepath.Join(r.dir, fmt.Sprintf("%s_%s_enhanced100.csv", season, commentType))
}

// ensureIndex loads (or rebuilds, on hash mismatch) the index for one
// (season, type) pair. A missing CSV file is a warning, not fatal: it
// returns an empty index.
func (r *Repository) ensureIndex(season string, commentType model.CommentType) (*fileIndex, error) {
	key := season + "|" + string(commentType)

	path := r.corpusPath(season, commentType)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &fileIndex{SchemaVersion: indexSchemaVersion}, nil
	}

	idx, err := loadOrBuildIndex(path, commentType, season)
	if err != nil {
		return nil, fmt.Errorf("commentrepo: index %s: %w", path, err)
	}

	r.mu.Lock()
	r.indexes[key] = idx
	r.mu.Unlock()
	return idx, nil
}

// GetAllAvailableComments returns up to capPerBucket comments per
// (season, type) pair across the whole corpus.
func (r *Repository) GetAllAvailableComments(commentType model.CommentType, capPerBucket int) ([]model.PastComment, error) {
	if cached, ok := r.cache.get(commentType, "", ""); ok {
		return cached, nil
	}

	var out []model.PastComment
	for _, season := range Seasons {
		idx, err := r.ensureIndex(season, commentType)
		if err != nil {
			continue // a missing/broken season file is a warning, not fatal
		}
		comments := idx.AllComments
		if capPerBucket > 0 && len(comments) > capPerBucket {
			comments = comments[:capPerBucket]
		}
		out = append(out, comments...)
	}
	r.cache.set(out, commentType, "", "")
	return out, nil
}

// GetCommentsBySeason returns comments for the given seasons and type.
func (r *Repository) GetCommentsBySeason(commentType model.CommentType, seasons []string) ([]model.PastComment, error) {
	seasonKey := strings.Join(seasons, ",")
	if cached, ok := r.cache.get(commentType, seasonKey, ""); ok {
		return cached, nil
	}

	var out []model.PastComment
	for _, season := range seasons {
		idx, err := r.ensureIndex(season, commentType)
		if err != nil {
			continue
		}
		out = append(out, idx.AllComments...)
	}
	r.cache.set(out, commentType, seasonKey, "")
	return out, nil
}

// SearchByWeather returns comments whose indexed weather text matches
// conditionText, searching across all seasons for the given type.
func (r *Repository) SearchByWeather(commentType model.CommentType, conditionText string) ([]model.PastComment, error) {
	var out []model.PastComment
	for _, season := range Seasons {
		idx, err := r.ensureIndex(season, commentType)
		if err != nil {
			continue
		}
		for _, i := range idx.ByWeather[conditionText] {
			out = append(out, idx.AllComments[i])
		}
	}
	return out, nil
}

// GetLeastUsed returns up to limit comments with the lowest usage_count,
// across all seasons for the given type.
func (r *Repository) GetLeastUsed(commentType model.CommentType, limit int) ([]model.PastComment, error) {
	var all []model.PastComment
	for _, season := range Seasons {
		idx, err := r.ensureIndex(season, commentType)
		if err != nil {
			continue
		}
		all = append(all, idx.AllComments...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].UsageCount < all[j].UsageCount })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Invalidate clears all cache levels for a comment type.
func (r *Repository) Invalidate(commentType model.CommentType) int {
	return r.cache.invalidate(commentType)
}

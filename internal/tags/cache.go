package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/vndbctl/internal/observability"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/sync/singleflight"
)

var ErrCacheRefresh = errors.New("tags: cache refresh failed")

// Cache is an in-memory tag index backed by files in a data directory.
// Refresh and Load are serialized; lookups read the last loaded snapshot
// and never observe a partially built index.
type Cache struct {
	cfg  Config
	http *resty.Client

	group   singleflight.Group
	writeMu sync.Mutex

	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	ordered []Tag
	byID    map[int]int
	byName  map[string]int
	names   *patricia.Trie
}

func New(cfg Config) *Cache {
	cfg = cfg.WithDefaults()
	client := resty.New().
		SetTimeout(cfg.DownloadTimeout).
		SetHeader("Accept-Encoding", "identity")
	return NewWithClient(cfg, client)
}

// NewWithClient uses client for dump downloads.
func NewWithClient(cfg Config, client *resty.Client) *Cache {
	return &Cache{
		cfg:  cfg.WithDefaults(),
		http: client,
		snap: buildSnapshot(nil),
	}
}

// Refresh makes sure dir holds a dump younger than the livetime and its
// decompressed tags.json. It reports whether a download happened.
// Concurrent calls for the same dir share one execution. The shared work is
// detached from any single caller's cancellation and bounded by
// DownloadTimeout; a caller whose ctx ends stops waiting with ctx.Err()
// while the others still receive the result.
func (c *Cache) Refresh(ctx context.Context, dir string) (bool, error) {
	ch := c.group.DoChan("refresh:"+dir, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.DownloadTimeout)
		defer cancel()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return c.refreshLocked(shared, dir)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		observability.RecordTagRefresh("failed")
		return false, fmt.Errorf("%w: %w", ErrCacheRefresh, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		observability.RecordTagRefresh("failed")
		return false, res.Err
	}
	downloaded := res.Val.(bool)
	if downloaded {
		observability.RecordTagRefresh("downloaded")
	} else {
		observability.RecordTagRefresh("fresh")
	}
	return downloaded, nil
}

func (c *Cache) refreshLocked(ctx context.Context, dir string) (bool, error) {
	dumpPath := filepath.Join(dir, DumpFile)
	tagsPath := filepath.Join(dir, TagsFile)

	dumpInfo, dumpErr := os.Stat(dumpPath)
	_, tagsErr := os.Stat(tagsPath)
	if dumpErr == nil && tagsErr == nil {
		age := c.cfg.Now().Sub(createdAt(dumpPath, dumpInfo))
		if age <= c.cfg.Livetime {
			log.Debug().Msgf("tags.Refresh fresh dir=%q age=%s", dir, age.Round(time.Second))
			return false, nil
		}
		log.Info().Msgf("tags.Refresh stale dir=%q age=%s livetime=%s", dir, age.Round(time.Second), c.cfg.Livetime)
		if err := removeIfExists(dumpPath, tagsPath); err != nil {
			return false, fmt.Errorf("%w: %w", ErrCacheRefresh, err)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("%w: %w", ErrCacheRefresh, err)
	}
	if err := c.download(ctx, dumpPath); err != nil {
		return false, fmt.Errorf("%w: download %s: %w", ErrCacheRefresh, c.cfg.DumpURL, err)
	}
	if _, err := os.Stat(dumpPath); err != nil {
		return false, fmt.Errorf("%w: dump missing after download: %w", ErrCacheRefresh, err)
	}
	if err := Decompress(dumpPath, tagsPath); err != nil {
		_ = removeIfExists(dumpPath, tagsPath)
		return false, fmt.Errorf("%w: %w", ErrCacheRefresh, err)
	}
	log.Info().Msgf("tags.Refresh downloaded dir=%q url=%q", dir, c.cfg.DumpURL)
	return true, nil
}

func (c *Cache) download(ctx context.Context, dst string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.cfg.DumpURL)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status())
	}
	return writeAtomic(dst, body)
}

// Decompress gunzips input into output, replacing output only after the
// whole stream decoded.
func Decompress(input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("tags: open dump: %w", err)
	}
	defer in.Close()
	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("tags: read gzip header: %w", err)
	}
	defer zr.Close()
	if err := removeIfExists(output); err != nil {
		return err
	}
	if err := writeAtomic(output, zr); err != nil {
		return fmt.Errorf("tags: decompress: %w", err)
	}
	return nil
}

// Load replaces the in-memory index with tags.json from dir and returns the
// number of tags. A missing file loads nothing and keeps the current index.
func (c *Cache) Load(dir string) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.loadLocked(dir)
}

func (c *Cache) loadLocked(dir string) (int, error) {
	raw, err := os.ReadFile(filepath.Join(dir, TagsFile))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("tags: read %s: %w", TagsFile, err)
	}
	var list []Tag
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0, fmt.Errorf("tags: decode %s: %w", TagsFile, err)
	}
	snap := buildSnapshot(list)

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	observability.SetTagsLoaded(len(snap.ordered))
	log.Info().Msgf("tags.Load dir=%q count=%d", dir, len(snap.ordered))
	return len(snap.ordered), nil
}

// RefreshAndLoad refreshes dir and loads it. On refresh failure the current
// index is left untouched.
func (c *Cache) RefreshAndLoad(ctx context.Context, dir string) (int, error) {
	if _, err := c.Refresh(ctx, dir); err != nil {
		return 0, err
	}
	return c.Load(dir)
}

// Daemon refreshes and reloads dir every interval until ctx is done. A
// non-positive interval uses DefaultDaemonInterval.
func (c *Cache) Daemon(ctx context.Context, dir string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultDaemonInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.RefreshAndLoad(ctx, dir); err != nil {
				log.Error().Msgf("tags.Daemon refresh dir=%q err=%v", dir, err)
			}
		}
	}
}

func (c *Cache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Cache) Len() int {
	return len(c.current().ordered)
}

// ByID returns the tag with id; ok is false when it is not cached.
func (c *Cache) ByID(id int) (Tag, bool) {
	s := c.current()
	i, ok := s.byID[id]
	if !ok {
		return Tag{}, false
	}
	return s.ordered[i], true
}

// ByName matches the full name case-insensitively.
func (c *Cache) ByName(name string) (Tag, bool) {
	s := c.current()
	i, ok := s.byName[nameKey(name)]
	if !ok {
		return Tag{}, false
	}
	return s.ordered[i], true
}

// WithPrefix returns up to limit tags whose name starts with prefix,
// case-insensitively, most used first. limit <= 0 returns all matches.
func (c *Cache) WithPrefix(prefix string, limit int) []Tag {
	s := c.current()
	var ranks []int
	_ = s.names.VisitSubtree(patricia.Prefix(nameKey(prefix)), func(_ patricia.Prefix, item patricia.Item) error {
		ranks = append(ranks, item.(int))
		return nil
	})
	sort.Ints(ranks)
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	out := make([]Tag, len(ranks))
	for i, r := range ranks {
		out[i] = s.ordered[r]
	}
	return out
}

// Top returns the n most used tags.
func (c *Cache) Top(n int) []Tag {
	s := c.current()
	if n <= 0 || n > len(s.ordered) {
		n = len(s.ordered)
	}
	out := make([]Tag, n)
	copy(out, s.ordered[:n])
	return out
}

func buildSnapshot(list []Tag) *snapshot {
	ordered := make([]Tag, len(list))
	copy(ordered, list)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].VNs > ordered[j].VNs
	})
	s := &snapshot{
		ordered: ordered,
		byID:    make(map[int]int, len(ordered)),
		byName:  make(map[string]int, len(ordered)),
		names:   patricia.NewTrie(),
	}
	for i, tag := range ordered {
		if _, dup := s.byID[tag.ID]; !dup {
			s.byID[tag.ID] = i
		}
		key := nameKey(tag.Name)
		if key == "" {
			continue
		}
		if _, dup := s.byName[key]; !dup {
			s.byName[key] = i
			s.names.Insert(patricia.Prefix(key), i)
		}
	}
	return s
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// writeAtomic streams r into a temp file next to dst and renames it over dst.
func writeAtomic(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func removeIfExists(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

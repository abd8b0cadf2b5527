// Package enrich turns raw visual novel records into display metadata,
// resolving tag ids through the tag cache.
package enrich

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/danmuck/vndbctl/internal/vndb"
)

const DefaultMaxTags = 50

// TagResolver is the lookup side of the tag cache.
type TagResolver interface {
	ByID(id int) (tags.Tag, bool)
}

// Genres resolves the tag ids of vn and returns the names of the max most
// used ones. Ids missing from the cache are skipped.
func Genres(vn vndb.VisualNovel, resolver TagResolver, max int) []string {
	if max <= 0 {
		max = DefaultMaxTags
	}
	resolved := make([]tags.Tag, 0, len(vn.Tags))
	seen := make(map[int]struct{}, len(vn.Tags))
	for _, t := range vn.Tags {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		if tag, ok := resolver.ByID(t.ID); ok {
			resolved = append(resolved, tag)
		}
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].VNs > resolved[j].VNs
	})
	if len(resolved) > max {
		resolved = resolved[:max]
	}
	out := make([]string, len(resolved))
	for i, tag := range resolved {
		out[i] = tag.Name
	}
	return out
}

// Link is a named external URL.
type Link struct {
	Name string
	URL  string
}

func Links(vn vndb.VisualNovel) []Link {
	out := []Link{{Name: "VNDB", URL: fmt.Sprintf("https://vndb.org/v%d", vn.ID)}}
	if vn.Links == nil {
		return out
	}
	if v := strings.TrimSpace(vn.Links.Wikidata); v != "" {
		out = append(out, Link{Name: "Wikidata", URL: "https://www.wikidata.org/wiki/" + v})
	}
	if v := strings.TrimSpace(vn.Links.Wikipedia); v != "" {
		out = append(out, Link{Name: "Wikipedia", URL: "https://wikipedia.org/wiki/" + v})
	}
	if v := strings.TrimSpace(vn.Links.Renai); v != "" {
		out = append(out, Link{Name: "Ren'Ai", URL: "https://renai.us/game/" + v})
	}
	return out
}

// CommunityScore maps the 1-10 bayesian rating onto 0-100.
func CommunityScore(vn vndb.VisualNovel) (int, bool) {
	if vn.Rating <= 0 {
		return 0, false
	}
	return int(vn.Rating * 10), true
}

// ReleaseDate parses "2003-12-26", "2003-12" and "2003". Placeholders such
// as "tba" report false.
func ReleaseDate(vn vndb.VisualNovel) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(vn.Released)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

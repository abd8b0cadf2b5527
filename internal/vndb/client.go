package vndb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/vndbctl/internal/protocol/session"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// VNFlags are the flags requested for every visual novel query.
var VNFlags = []string{"basic", "details", "stats", "screens", "tags"}

var ErrInvalidVNID = errors.New("vndb: invalid visual novel id")

type ClientConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		CacheSize: 256,
		CacheTTL:  15 * time.Minute,
	}
}

// Client runs typed visual novel queries over an authenticated session.
// Results are cached by query text; "more" pages are never followed.
type Client struct {
	sess  *session.Session
	cache *expirable.LRU[string, session.ResultSet[VisualNovel]]
}

func NewClient(sess *session.Session, cfg ClientConfig) *Client {
	c := &Client{sess: sess}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, session.ResultSet[VisualNovel]](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c
}

func (c *Client) GetVNByID(ctx context.Context, id int) (session.ResultSet[VisualNovel], error) {
	if id <= 0 {
		return session.ResultSet[VisualNovel]{}, fmt.Errorf("%w: %d", ErrInvalidVNID, id)
	}
	return c.query(ctx, session.Get("vn", VNFlags...).Where(session.IDEquals(id)))
}

func (c *Client) GetVNByTitle(ctx context.Context, title string) (session.ResultSet[VisualNovel], error) {
	return c.query(ctx, session.Get("vn", VNFlags...).Where(session.TitleEquals(strings.TrimSpace(title))))
}

func (c *Client) SearchVN(ctx context.Context, text string) (session.ResultSet[VisualNovel], error) {
	return c.query(ctx, session.Get("vn", VNFlags...).Where(session.SearchMatches(strings.TrimSpace(text))))
}

// Query runs an arbitrary vn query.
func (c *Client) Query(ctx context.Context, q session.Query) (session.ResultSet[VisualNovel], error) {
	return c.query(ctx, q)
}

func (c *Client) query(ctx context.Context, q session.Query) (session.ResultSet[VisualNovel], error) {
	key := q.String()
	if c.cache != nil {
		if rs, ok := c.cache.Get(key); ok {
			log.Debug().Msgf("vndb.Client cache hit query=%q", key)
			return rs, nil
		}
	}
	rs, err := session.FetchResults[VisualNovel](ctx, c.sess, q)
	if err != nil {
		return session.ResultSet[VisualNovel]{}, err
	}
	if c.cache != nil {
		c.cache.Add(key, rs)
	}
	return rs, nil
}

// ParseVNID accepts "17", "v17" and "https://vndb.org/v17". ok is false
// when the input is a search term rather than an id.
func ParseVNID(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://vndb.org/")
	s = strings.TrimPrefix(s, "http://vndb.org/")
	s = strings.TrimPrefix(s, "v")
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

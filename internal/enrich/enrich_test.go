package enrich

import (
	"testing"
	"time"

	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/danmuck/vndbctl/internal/testutil/testlog"
	"github.com/danmuck/vndbctl/internal/vndb"
	"github.com/stretchr/testify/require"
)

type mapResolver map[int]tags.Tag

func (m mapResolver) ByID(id int) (tags.Tag, bool) {
	t, ok := m[id]
	return t, ok
}

func TestGenresOrdersByUsageAndTruncates(t *testing.T) {
	testlog.Start(t)
	resolver := mapResolver{
		1: {ID: 1, Name: "Romance", VNs: 300},
		2: {ID: 2, Name: "Horror", VNs: 900},
		3: {ID: 3, Name: "School", VNs: 600},
	}
	vn := vndb.VisualNovel{Tags: []vndb.VNTag{{ID: 1}, {ID: 99}, {ID: 2}, {ID: 3}, {ID: 2}}}

	require.Equal(t, []string{"Horror", "School", "Romance"}, Genres(vn, resolver, 0))
	require.Equal(t, []string{"Horror", "School"}, Genres(vn, resolver, 2))
	require.Empty(t, Genres(vndb.VisualNovel{}, resolver, 5))
}

func TestDescriptionHTML(t *testing.T) {
	testlog.Start(t)
	in := "Based on [url=http://en.wikipedia.org/wiki/Saya_no_Uta]Wikipedia[/url] and [URL=https://a.b/?x=1&y=2]this[/URL]."
	want := `Based on <a href="http://en.wikipedia.org/wiki/Saya_no_Uta">Wikipedia</a> and <a href="https://a.b/?x=1&amp;y=2">this</a>.`
	require.Equal(t, want, DescriptionHTML(in))
	require.Equal(t, "plain [b]text[/b]", DescriptionHTML("plain [b]text[/b]"))
}

func TestLinksScoreAndRelease(t *testing.T) {
	testlog.Start(t)
	vn := vndb.VisualNovel{
		ID:       97,
		Rating:   8.07,
		Released: "2003-12",
		Links:    &vndb.Links{Wikidata: "Q1140014", Renai: "saya"},
	}
	links := Links(vn)
	require.Len(t, links, 3)
	require.Equal(t, "https://vndb.org/v97", links[0].URL)
	require.Equal(t, "https://renai.us/game/saya", links[2].URL)

	score, ok := CommunityScore(vn)
	require.True(t, ok)
	require.Equal(t, 80, score)

	date, ok := ReleaseDate(vn)
	require.True(t, ok)
	require.Equal(t, time.Date(2003, 12, 1, 0, 0, 0, 0, time.UTC), date)

	_, ok = ReleaseDate(vndb.VisualNovel{Released: "tba"})
	require.False(t, ok)
	_, ok = CommunityScore(vndb.VisualNovel{})
	require.False(t, ok)
}

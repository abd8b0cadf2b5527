package tags

import (
	"strings"
	"time"
)

const (
	DefaultDumpURL  = "https://dl.vndb.org/dump/vndb-tags-latest.json.gz"
	DefaultLivetime = 24 * time.Hour

	DefaultDaemonInterval = 6 * time.Hour

	DumpFile = "vndb-tags-latest.json.gz"
	TagsFile = "tags.json"
)

type Config struct {
	DumpURL string
	// Livetime is the maximum age of the downloaded dump, measured from the
	// dump file's creation time.
	Livetime        time.Duration
	DownloadTimeout time.Duration
	// Now is the clock used for age checks.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		DumpURL:         DefaultDumpURL,
		Livetime:        DefaultLivetime,
		DownloadTimeout: 5 * time.Minute,
		Now:             time.Now,
	}
}

// LivetimeDays converts a livetime in days; non-positive values use the default.
func LivetimeDays(days int) time.Duration {
	if days <= 0 {
		return DefaultLivetime
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if strings.TrimSpace(c.DumpURL) == "" {
		c.DumpURL = d.DumpURL
	}
	if c.Livetime <= 0 {
		c.Livetime = d.Livetime
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = d.DownloadTimeout
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/vndbctl/internal/enrich"
	"github.com/danmuck/vndbctl/internal/protocol/session"
	"github.com/danmuck/vndbctl/internal/protocol/transport"
	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/danmuck/vndbctl/internal/vndb"
)

type fileConfig struct {
	Host             string `toml:"host"`
	PlainPort        int    `toml:"plain_port"`
	TLSPort          int    `toml:"tls_port"`
	UseTLS           bool   `toml:"use_tls"`
	TLSCAFile        string `toml:"tls_ca_file"`
	TLSServerName    string `toml:"tls_server_name"`
	ConnectTimeout   string `toml:"connect_timeout"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	CommandTimeout   string `toml:"command_timeout"`
	MaxChunkReads    int    `toml:"max_chunk_reads"`
	ChunkSize        int    `toml:"chunk_size"`
	ClientName       string `toml:"client_name"`
	Username         string `toml:"username"`
	Password         string `toml:"password"`
	DataDir          string `toml:"data_dir"`
	TagsLivetimeDays int    `toml:"tags_livetime_days"`
	TagsDumpURL      string `toml:"tags_dump_url"`
	MaxTags          int    `toml:"max_tags"`
	ResultCacheSize  int    `toml:"result_cache_size"`
	ResultCacheTTL   string `toml:"result_cache_ttl"`
}

// appConfig is the resolved configuration of every component the CLI wires.
type appConfig struct {
	Transport   transport.Config
	Session     session.Config
	Credentials *session.Credentials
	Client      vndb.ClientConfig
	Tags        tags.Config
	DataDir     string
	MaxTags     int
}

func defaultAppConfig() appConfig {
	return appConfig{
		Transport: transport.DefaultConfig(),
		Session:   session.DefaultConfig(),
		Client:    vndb.DefaultClientConfig(),
		Tags:      tags.DefaultConfig(),
		DataDir:   defaultDataDir(),
		MaxTags:   enrich.DefaultMaxTags,
	}
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "vndbctl")
	}
	return filepath.Join(dir, "vndbctl")
}

// loadAppConfig returns defaults when path is empty.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load vndbctl config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Transport.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("plain_port") {
		cfg.Transport.PlainPort = raw.PlainPort
	}
	if meta.IsDefined("tls_port") {
		cfg.Transport.TLSPort = raw.TLSPort
	}
	if meta.IsDefined("use_tls") {
		cfg.Transport.UseTLS = raw.UseTLS
	}
	if meta.IsDefined("tls_ca_file") {
		cfg.Transport.TLS.CAFile = strings.TrimSpace(raw.TLSCAFile)
	}
	if meta.IsDefined("tls_server_name") {
		cfg.Transport.TLS.ServerName = strings.TrimSpace(raw.TLSServerName)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Transport.ConnectTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Transport.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Transport.WriteTimeout},
		{"command_timeout", raw.CommandTimeout, &cfg.Session.CommandTimeout},
		{"result_cache_ttl", raw.ResultCacheTTL, &cfg.Client.CacheTTL},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("max_chunk_reads") {
		cfg.Session.MaxChunkReads = raw.MaxChunkReads
	}
	if meta.IsDefined("chunk_size") {
		cfg.Session.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("client_name") {
		cfg.Session.ClientName = strings.TrimSpace(raw.ClientName)
	}
	if meta.IsDefined("username") || meta.IsDefined("password") {
		cfg.Credentials = &session.Credentials{
			Username: strings.TrimSpace(raw.Username),
			Password: raw.Password,
		}
	}
	if meta.IsDefined("data_dir") {
		if dir := strings.TrimSpace(raw.DataDir); dir != "" {
			cfg.DataDir = dir
		}
	}
	if meta.IsDefined("tags_livetime_days") {
		cfg.Tags.Livetime = tags.LivetimeDays(raw.TagsLivetimeDays)
	}
	if meta.IsDefined("tags_dump_url") {
		cfg.Tags.DumpURL = strings.TrimSpace(raw.TagsDumpURL)
	}
	if meta.IsDefined("max_tags") {
		cfg.MaxTags = raw.MaxTags
	}
	if meta.IsDefined("result_cache_size") {
		cfg.Client.CacheSize = raw.ResultCacheSize
	}

	if err := cfg.Transport.WithDefaults().Validate(); err != nil {
		return appConfig{}, err
	}
	if err := session.ValidateCredentials(cfg.Credentials, cfg.Transport.UseTLS); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/danmuck/vndbctl/internal/protocol/session"
	"github.com/danmuck/vndbctl/internal/protocol/transport"
	"github.com/danmuck/vndbctl/internal/tags"
	"github.com/danmuck/vndbctl/internal/vndb"
	"github.com/rs/zerolog/log"
)

type app struct {
	cfg  appConfig
	sess *session.Session
}

func newApp() (*app, error) {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return nil, err
	}
	t := transport.New(cfg.Transport)
	return &app{cfg: cfg, sess: session.New(cfg.Session, t)}, nil
}

// login brings the session to Authenticated.
func (a *app) login(ctx context.Context) error {
	if err := a.sess.Login(ctx, a.cfg.Credentials); err != nil {
		return fmt.Errorf("login %s: %w", a.cfg.Transport.WithDefaults().Address(), err)
	}
	return nil
}

func (a *app) client(ctx context.Context) (*vndb.Client, error) {
	if err := a.login(ctx); err != nil {
		return nil, err
	}
	return vndb.NewClient(a.sess, a.cfg.Client), nil
}

// tagCache loads the local index, refreshing it first when stale. A failed
// refresh is logged and the previous files are used if present.
func (a *app) tagCache(ctx context.Context) (*tags.Cache, error) {
	cache := tags.New(a.cfg.Tags)
	if _, err := cache.Refresh(ctx, a.cfg.DataDir); err != nil {
		log.Warn().Msgf("vndbctl.tagCache refresh dir=%s err=%v", a.cfg.DataDir, err)
	}
	if _, err := cache.Load(a.cfg.DataDir); err != nil {
		return nil, err
	}
	return cache, nil
}

func (a *app) close() {
	if err := a.sess.Close(); err != nil {
		log.Debug().Msgf("vndbctl.close err=%v", err)
	}
}

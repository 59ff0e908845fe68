package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/mixtape-studio/internal/auth"
	"github.com/justestif/mixtape-studio/internal/config"
	"github.com/justestif/mixtape-studio/internal/db"
	"github.com/justestif/mixtape-studio/internal/listenbrainz"
	"github.com/justestif/mixtape-studio/internal/logging"
	"github.com/justestif/mixtape-studio/internal/musicbrainz"
	"github.com/justestif/mixtape-studio/internal/recommend"
	"github.com/justestif/mixtape-studio/internal/session"
	"github.com/justestif/mixtape-studio/internal/spotify"
	"github.com/justestif/mixtape-studio/internal/web"
	webfs "github.com/justestif/mixtape-studio/web"
)

const sessionCookieName = "mixtape_session"

func loadConfig(cmd *cli.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(nil, cfg.LogLevel)
	log.SetDefault(logger)
	return cfg, logger, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	creds := database.Credentials()

	authenticator, err := auth.New(auth.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.CallbackURL(),
	})
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}
	resolver := session.NewResolver(creds, auth.NewRefresher(authenticator, creds))

	base, err := url.Parse(cfg.RedirectBaseURL)
	if err != nil {
		return fmt.Errorf("parsing redirect base url: %w", err)
	}
	sessions := session.NewCookieStore(sessionCookieName, base.Scheme == "https", []byte(cfg.SessionSecret))

	catalog := spotify.NewFactory(spotify.WithTimeout(cfg.RequestTimeout()))

	radio := listenbrainz.NewClient(listenbrainz.Config{
		APIKey:    cfg.ListenBrainz.APIKey,
		BaseURL:   cfg.ListenBrainz.BaseURL,
		UserAgent: cfg.MusicBrainz.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	})

	cache, closeCache, err := recordingCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	recordings, err := musicbrainz.NewClient(musicbrainz.Config{
		BaseURL:      cfg.MusicBrainz.BaseURL,
		UserAgent:    cfg.MusicBrainz.UserAgent,
		Timeout:      cfg.RequestTimeout(),
		DefaultPause: cfg.MusicBrainzDefaultPause(),
	}, musicbrainz.WithCache(cache))
	if err != nil {
		return fmt.Errorf("creating musicbrainz client: %w", err)
	}

	recommender := recommend.New(cfg.RecommendationService, recommend.SpotifyCatalog(catalog), radio, recordings)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:        cfg.Addr,
		TemplatesFS: templates,
		StaticFS:    static,
	}, web.Deps{
		Auth:        authenticator,
		Sessions:    sessions,
		Resolver:    resolver,
		Credentials: creds,
		Catalog: func(accessToken string) web.Catalog {
			return catalog.ForToken(accessToken)
		},
		Recommender: recommender,
		Health:      database.Ping,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	logger.Info("recommendations configured", "service", cfg.RecommendationService)
	return server.Run(ctx)
}

// recordingCache returns the Redis cache when configured, otherwise an in-process one.
func recordingCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (musicbrainz.Cache, func(), error) {
	if cfg.Redis.Addr == "" {
		return musicbrainz.NewMemoryCache(musicbrainz.CacheTTL), func() {}, nil
	}

	rdb, err := musicbrainz.OpenRedis(ctx, musicbrainz.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis recording cache", "addr", cfg.Redis.Addr)
	return musicbrainz.NewRedisCache(rdb, musicbrainz.CacheTTL), func() { _ = rdb.Close() }, nil
}

func migrate(_ context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return &config.MissingSettingError{Setting: "database_url"}
	}

	dir := db.Up
	if cmd.Bool("down") {
		dir = db.Down
	}
	version, err := db.Migrate(cfg.DatabaseURL, dir)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "version", version, "down", cmd.Bool("down"))
	return nil
}

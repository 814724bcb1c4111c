package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/iTrooz/resource-cache/internal/cache"
	"github.com/iTrooz/resource-cache/internal/config"
	"github.com/iTrooz/resource-cache/internal/logging"
	"github.com/iTrooz/resource-cache/internal/proxy"
	"github.com/iTrooz/resource-cache/internal/resource"
	"github.com/iTrooz/resource-cache/internal/webservice"
)

type app struct {
	configPath string
}

func newApp() *cli.Command {
	a := &app{}
	return &cli.Command{
		Name:            "resource-cache",
		Usage:           "fetch network resources through a local read-through cache",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the YAML configuration file",
				Sources:     cli.EnvVars("RESOURCE_CACHE_CONFIG"),
				Destination: &a.configPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "print a resource, reading through the cache",
				ArgsUsage: "URL",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "send a POST with this body",
					},
				},
				Action: a.fetch,
			},
			{
				Name:      "key",
				Usage:     "print the cache key of a URL",
				ArgsUsage: "URL",
				Action:    a.key,
			},
			{
				Name:   "clear",
				Usage:  "remove every cached entry",
				Action: a.clear,
			},
			{
				Name:   "proxy",
				Usage:  "run the caching forward proxy",
				Action: a.proxy,
			},
		},
	}
}

// setup loads the configuration and applies its logging section
func (a *app) setup() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCached(cfg *config.Config, engineOpts ...webservice.HTTPOption) (*webservice.Cached, error) {
	storage, err := cache.NewDiskDir(cfg.Cache.Folder)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid network timeout: %w", err)
	}
	engine := webservice.NewHTTPEngine(append([]webservice.HTTPOption{
		webservice.WithTimeout(timeout),
		webservice.WithUserAgent(cfg.Network.UserAgent),
	}, engineOpts...)...)

	var opts []webservice.CachedOption
	if cfg.Cache.Coalesce {
		opts = append(opts, webservice.WithCoalescing())
	}
	return webservice.NewCached(webservice.New(engine), cache.New(storage), opts...), nil
}

func (a *app) fetch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one URL, got %d arguments", cmd.Args().Len())
	}

	cfg, err := a.setup()
	if err != nil {
		return err
	}
	cached, err := newCached(cfg)
	if err != nil {
		return err
	}

	method := resource.MethodGet
	if cmd.IsSet("data") {
		method = resource.MethodPost([]byte(cmd.String("data")))
	}
	res, err := resource.Raw(cmd.Args().First(), method)
	if err != nil {
		return err
	}

	body, err := webservice.Fetch(ctx, cached, res)
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(body)
	return err
}

func (a *app) key(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one URL, got %d arguments", cmd.Args().Len())
	}
	res, err := resource.Raw(cmd.Args().First(), resource.MethodGet)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, cache.Key(res.Address()))
	return err
}

func (a *app) clear(_ context.Context, _ *cli.Command) error {
	cfg, err := a.setup()
	if err != nil {
		return err
	}
	storage, err := cache.NewDiskDir(cfg.Cache.Folder)
	if err != nil {
		return err
	}

	cache.New(storage).Clear()
	logrus.Infof("Cleared cache directory %s", cfg.Cache.Folder)
	return nil
}

func (a *app) proxy(ctx context.Context, _ *cli.Command) error {
	cfg, err := a.setup()
	if err != nil {
		return err
	}
	// only plain 200 answers are stored; the proxy replays anything else
	cached, err := newCached(cfg, webservice.WithSuccessStatus(http.StatusOK))
	if err != nil {
		return err
	}

	server, err := proxy.New(cfg, cached)
	if err != nil {
		return fmt.Errorf("failed to create proxy server: %w", err)
	}
	return server.Start(ctx)
}

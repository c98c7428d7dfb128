// Command mediasync drives one full sync pass over every configured
// video_source row: refresh, detail fetch, then (unless -scan-only) the
// two-tier download scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brackenfield/mediasync/internal/artwork"
	"github.com/brackenfield/mediasync/internal/config"
	"github.com/brackenfield/mediasync/internal/data/db"
	syncrepo "github.com/brackenfield/mediasync/internal/data/repos/sync"
	"github.com/brackenfield/mediasync/internal/platform/envutil"
	"github.com/brackenfield/mediasync/internal/platform/logger"
	"github.com/brackenfield/mediasync/internal/progress"
	"github.com/brackenfield/mediasync/internal/runner"
	"github.com/brackenfield/mediasync/internal/scheduler"
	"github.com/brackenfield/mediasync/internal/seasoncache"
)

func main() {
	var configPath string
	var scanOnly bool
	var logMode string
	flag.StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	flag.BoolVar(&scanOnly, "scan-only", false, "run refresh and detail fetch, skip downloads")
	flag.StringVar(&logMode, "log-mode", "dev", "log output mode: dev or prod")
	flag.Parse()

	if err := run(configPath, scanOnly, logMode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, scanOnly bool, logMode string) error {
	log, err := logger.New(logMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warn("config load failed, using defaults", "path", configPath, "err", err.Error())
		cfg = config.Default()
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	gdb := pg.DB()

	sources := syncrepo.NewVideoSourceRepo(gdb, log)
	videos := syncrepo.NewVideoRepo(gdb, log)
	pages := syncrepo.NewPageRepo(gdb, log)

	client := newStubClient()
	seasons := seasoncache.New(client)

	bus := newProgressBus(log)
	defer bus.Close()

	artworkGen := newArtworkGenerator(log)

	deps := runner.Deps{
		DB:      gdb,
		Log:     log,
		Sources: sources,
		Videos:  videos,
		Pages:   pages,
		Client:  client,
		Config:  cfg,
		Scheduler: scheduler.Deps{
			Client:     client,
			Downloader: newStubDownloader(),
			Files:      newStubFileWriter(),
			NFO:        newStubNFOWriter(),
			Danmaku:    newStubDanmakuWriter(),
			Subtitles:  newStubSubtitleFetcher(),
			Streams:    newStubStreamPicker(),
			Artwork:    artworkGen,
			Seasons:    seasons,
			Progress:   bus,
		},
	}

	res, err := runner.Run(context.Background(), deps, runner.Options{ScanOnly: scanOnly})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	for _, sr := range res.Sources {
		if sr.Err != nil {
			log.Error("source failed", "source", sr.Source.DisplayName, "err", sr.Err.Error())
			continue
		}
		log.Info("source done",
			"source", sr.Source.DisplayName,
			"refreshed", sr.Refresh.Accepted,
			"enriched", sr.Enrich.Fetched,
			"downloaded", sr.Video.Succeeded,
		)
	}
	return nil
}

func newProgressBus(log *logger.Logger) progress.Bus {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return progress.NoopBus{}
	}
	channel := envutil.String("REDIS_PROGRESS_CHANNEL", "mediasync:progress")
	bus, err := progress.NewRedisBus(addr, channel, log)
	if err != nil {
		log.Warn("redis progress bus unavailable, falling back to noop", "err", err.Error())
		return progress.NoopBus{}
	}
	return bus
}

func newArtworkGenerator(log *logger.Logger) *artwork.Generator {
	path := envutil.String("PLACEHOLDER_FONT_PATH", "")
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("placeholder font unreadable, placeholder artwork disabled", "path", path, "err", err.Error())
		return nil
	}
	gen, err := artwork.NewGenerator(raw)
	if err != nil {
		log.Warn("placeholder font invalid, placeholder artwork disabled", "path", path, "err", err.Error())
		return nil
	}
	return gen
}

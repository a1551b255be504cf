// piju-server is a self-hosted music appliance: it owns the audio output
// of the machine it runs on, serves a catalog of local music over HTTP,
// and plays local files, internet radio and on-demand downloads.
package main

import (
	"fmt"
	"net/http"
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/piju/piju-server/internal/api"
	"github.com/piju/piju-server/internal/config"
	dbutil "github.com/piju/piju-server/internal/db"
	"github.com/piju/piju-server/internal/fetcher"
	"github.com/piju/piju-server/internal/player"
	"github.com/piju/piju-server/internal/worker"
)

const listenAddr = "0.0.0.0:5000"

type args struct {
	Config   string `arg:"-c,--config" help:"configuration file path"`
	Database string `arg:"-d,--database,required" help:"catalog database path (must exist)"`
	Verbose  bool   `arg:"-v,--verbose" help:"enable debug logging"`
}

func (args) Version() string {
	return "piju-server " + api.APIVersion
}

func main() {
	var a args
	arg.MustParse(&a)

	setupLogging(a.Verbose)

	if err := run(a); err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	// Human-readable output on a terminal, JSON when redirected.
	if info, err := os.Stderr.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func run(a args) error {
	cfg, err := config.Load(a.Config)
	if err != nil {
		return err
	}

	db, err := dbutil.Open(a.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := fetcher.NewRegistry()
	history := fetcher.NewHistory()

	w := worker.New(db, registry, func(url string) []fetcher.Download {
		return player.CachedDownloads(history, url)
	})

	poller := player.NewPoller()
	filePlayer := player.NewFilePlayer()
	streamPlayer := player.NewStreamPlayer(poller)

	enqueueFetch := func(url string, done func(string, []fetcher.Download)) {
		w.Enqueue(worker.Request{
			Kind:        worker.FetchFromYouTube,
			URL:         url,
			DownloadDir: cfg.DownloadDir,
			Cookies:     cfg.Cookies,
			Done:        done,
		})
	}
	coordinator := player.NewCoordinator(db, filePlayer, streamPlayer, history, registry, enqueueFetch)

	server := api.NewServer(db, cfg, coordinator, filePlayer, streamPlayer, w, history, registry)

	poller.Start()
	defer poller.Close()
	w.Start()
	defer w.Close()

	log.Info().Str("addr", listenAddr).Str("music_dir", cfg.MusicDir).Msg("serving")
	if err := http.ListenAndServe(listenAddr, server.Router()); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Command xtream-sync: keep a local sqlite cache of an Xtream provider catalog.
//
//	run       Sync on start, then resync on a timer (or SIGHUP). For systemd.
//	sync      One full sync, then exit
//	refresh   Re-fetch a single category into the cache
//	episodes  Load episodes for a series (cache first, -force to re-fetch)
//	search    Search cached streams, series and episodes by title
//	accounts  List configured accounts
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/snapetech/xtreamsync/internal/config"
	"github.com/snapetech/xtreamsync/internal/health"
	"github.com/snapetech/xtreamsync/internal/metrics"
	"github.com/snapetech/xtreamsync/internal/repo"
	"github.com/snapetech/xtreamsync/internal/store"
	"github.com/snapetech/xtreamsync/internal/xtream"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// openRepo wires store + metrics + client factory into a Repository.
// Caller closes the returned store.
func openRepo(cfg *config.Config, log *logrus.Logger, reg prometheus.Registerer) (*repo.Repository, *store.Store, error) {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store %s: %w", cfg.DatabasePath, err)
	}
	r, err := repo.New(repo.Config{
		Store:     st,
		NewClient: repo.DefaultClientFactory(cfg.RequestTimeout, log),
		Logger:    log,
		Metrics:   metrics.New(reg),
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return r, st, nil
}

// ensureAccount finds the account matching the configured provider login, or
// creates it with a validating full sync on first run.
func ensureAccount(ctx context.Context, r *repo.Repository, cfg *config.Config, log *logrus.Logger) (repo.ProviderAccount, error) {
	if cfg.ProviderBaseURL == "" || cfg.ProviderUser == "" || cfg.ProviderPass == "" {
		return repo.ProviderAccount{}, fmt.Errorf("set XTREAM_SYNC_PROVIDER_URL, XTREAM_SYNC_PROVIDER_USER and XTREAM_SYNC_PROVIDER_PASS in .env")
	}
	account, err := r.FindAccountByLogin(ctx, cfg.ProviderBaseURL, cfg.ProviderUser)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return repo.ProviderAccount{}, err
	}
	log.WithField("base_url", cfg.ProviderBaseURL).Info("no account for provider yet, creating with a validation sync")
	return r.SaveAccount(ctx, repo.AccountDraft{
		DisplayName: cfg.DisplayName,
		BaseURL:     cfg.ProviderBaseURL,
		Username:    cfg.ProviderUser,
		Password:    cfg.ProviderPass,
	}, "")
}

func syncOnce(ctx context.Context, r *repo.Repository, account repo.ProviderAccount, log *logrus.Logger) error {
	start := time.Now()
	if _, err := r.FullSync(ctx, account); err != nil {
		if failure, ok := r.LastFailure(account.ID); ok {
			log.WithError(failure.Err).WithField("step", failure.Step.String()).Error("full sync failed")
		}
		return err
	}
	log.WithField("took", time.Since(start).Round(time.Millisecond)).Info("full sync done")
	return nil
}

// serveHTTP exposes /metrics and /healthz until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, reg *prometheus.Registry, st *store.Store, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.Handler(st.DB()))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	log.WithField("addr", addr).Info("serving /metrics and /healthz")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("http server failed")
	}
}

func main() {
	_ = config.LoadEnvFile(".env")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runResync := runCmd.Duration("resync", 0, "Resync interval (e.g. 6h). 0 = use XTREAM_SYNC_RESYNC_INTERVAL")
	runSkipSync := runCmd.Bool("skip-sync", false, "Skip the full sync at startup (use existing cache)")

	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)

	refreshCmd := flag.NewFlagSet("refresh", flag.ExitOnError)
	refreshKind := refreshCmd.String("kind", "live", "Media kind: live, movie or series")
	refreshCategory := refreshCmd.String("category", "", "Category ID to re-fetch (required)")

	episodesCmd := flag.NewFlagSet("episodes", flag.ExitOnError)
	episodesSeries := episodesCmd.String("series", "", "Series ID (required)")
	episodesForce := episodesCmd.Bool("force", false, "Re-fetch from the provider even when cached")

	searchCmd := flag.NewFlagSet("search", flag.ExitOnError)
	searchQuery := searchCmd.String("q", "", "Title substring to search for (required)")

	accountsCmd := flag.NewFlagSet("accounts", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <run|sync|refresh|episodes|search|accounts> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  run       Sync on start, then resync on a timer or SIGHUP (for systemd)\n")
		fmt.Fprintf(os.Stderr, "  sync      One full sync, then exit\n")
		fmt.Fprintf(os.Stderr, "  refresh   Re-fetch a single category (-kind live|movie|series -category ID)\n")
		fmt.Fprintf(os.Stderr, "  episodes  Load episodes for a series (-series ID, -force to re-fetch)\n")
		fmt.Fprintf(os.Stderr, "  search    Search the cache by title (-q text)\n")
		fmt.Fprintf(os.Stderr, "  accounts  List configured accounts\n")
		os.Exit(1)
	}

	cfg := config.Load()
	log := newLogger(cfg)
	reg := prometheus.NewRegistry()

	r, st, err := openRepo(cfg, log, reg)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "run":
		_ = runCmd.Parse(os.Args[2:])
		account, err := ensureAccount(ctx, r, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("account setup failed")
		}
		if cfg.HTTPAddr != "" {
			go serveHTTP(ctx, cfg.HTTPAddr, reg, st, log)
		}
		if cfg.SyncOnStart && !*runSkipSync {
			if err := syncOnce(ctx, r, account, log); err != nil {
				log.WithError(err).Fatal("startup sync failed")
			}
		} else {
			// Serving from the existing cache; still report whether the panel answers.
			if err := health.CheckProvider(ctx, nil, account.BaseURL); err != nil {
				log.WithError(err).Warn("provider check failed")
			} else {
				log.Info("provider OK")
			}
		}

		resync := cfg.ResyncInterval
		if *runResync > 0 {
			resync = *runResync
		}
		sigHUP := make(chan os.Signal, 1)
		signal.Notify(sigHUP, syscall.SIGHUP)
		defer signal.Stop(sigHUP)
		var tickerC <-chan time.Time
		if resync > 0 {
			ticker := time.NewTicker(resync)
			defer ticker.Stop()
			tickerC = ticker.C
			log.WithField("interval", resync).Info("resync timer armed")
		}
		for {
			select {
			case <-ctx.Done():
				log.Info("shutting down")
				return
			case <-tickerC:
				log.Info("scheduled resync")
			case <-sigHUP:
				log.Info("SIGHUP received, resyncing")
			}
			// Keep serving the previous cache when a resync fails.
			if err := syncOnce(ctx, r, account, log); err != nil {
				log.WithError(err).Warn("resync failed, cache unchanged")
			}
		}

	case "sync":
		_ = syncCmd.Parse(os.Args[2:])
		account, err := ensureAccount(ctx, r, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("account setup failed")
		}
		if err := syncOnce(ctx, r, account, log); err != nil {
			os.Exit(1)
		}

	case "refresh":
		_ = refreshCmd.Parse(os.Args[2:])
		kind := xtream.MediaKind(*refreshKind)
		if !kind.Valid() || *refreshCategory == "" {
			log.Fatal("need -kind live|movie|series and -category ID")
		}
		account, err := ensureAccount(ctx, r, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("account setup failed")
		}
		if err := r.RefreshCategory(ctx, account.ID, kind, *refreshCategory); err != nil {
			log.WithError(err).Fatal("refresh failed")
		}
		log.WithFields(logrus.Fields{"kind": kind, "category": *refreshCategory}).Info("category refreshed")

	case "episodes":
		_ = episodesCmd.Parse(os.Args[2:])
		if *episodesSeries == "" {
			log.Fatal("need -series ID")
		}
		account, err := ensureAccount(ctx, r, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("account setup failed")
		}
		res, err := r.LoadEpisodes(ctx, account.ID, *episodesSeries, *episodesForce)
		if err != nil {
			log.WithError(err).Fatal("episode load failed")
		}
		if res.Fallback != nil {
			reason := res.UnsupportedReason
			if reason == "" {
				reason = "provider returned no episode list"
			}
			fmt.Printf("no episodes (%s); direct play: %s\n", reason, res.Fallback.StreamURL)
			return
		}
		for _, ep := range res.Episodes {
			fmt.Printf("S%02dE%02d  %s\n", ep.Season, ep.Number, ep.Title)
		}

	case "search":
		_ = searchCmd.Parse(os.Args[2:])
		if *searchQuery == "" {
			log.Fatal("need -q text")
		}
		account, err := ensureAccount(ctx, r, cfg, log)
		if err != nil {
			log.WithError(err).Fatal("account setup failed")
		}
		results, err := r.Search(ctx, account.ID, *searchQuery)
		if err != nil {
			log.WithError(err).Fatal("search failed")
		}
		for _, res := range results {
			switch res.Kind {
			case repo.ResultSeries:
				fmt.Printf("series   %s\n", res.Series.Title)
			default:
				fmt.Printf("%-8s %s\n", res.Playable.Kind, res.Playable.Title)
			}
		}

	case "accounts":
		_ = accountsCmd.Parse(os.Args[2:])
		accounts, err := r.ListAccounts(ctx)
		if err != nil {
			log.WithError(err).Fatal("list accounts failed")
		}
		for _, a := range accounts {
			fmt.Printf("%s  %s  %s@%s  (updated %s)\n", a.ID, a.DisplayName, a.Username, a.BaseURL, a.UpdatedAt.Format(time.RFC3339))
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

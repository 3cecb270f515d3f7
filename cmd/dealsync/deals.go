package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"grocerygenius-api/internal/cache"
	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/config"
	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/repository"
	"grocerygenius-api/internal/service"

	"github.com/dustin/go-humanize"
)

// env bundles what the commands that touch the database need.
type env struct {
	cfg        *config.Config
	repo       *repository.SQLRepository
	sync       *service.SyncService
	deals      *service.DealService
	closeCache func()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	repo, err := repository.Open(cfg.Database.Type, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		repo.Close()
		return nil, err
	}
	if cfg.Catalog.SeedStores {
		if _, err := service.NewStoreService(repo, cat).Seed(ctx); err != nil {
			repo.Close()
			return nil, err
		}
	}

	client := flipp.NewClient(flipp.Config{
		BaseURL:           cfg.Upstream.BaseURL,
		Locale:            cfg.Upstream.Locale,
		UserAgent:         cfg.Upstream.UserAgent,
		Timeout:           cfg.Upstream.Timeout,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
	}, nil)

	// Same locker and query cache as the server.
	queryCache, locker, closeCache := cache.Open(ctx, cache.Options{
		Type:       cfg.Cache.Type,
		Redis:      cache.RedisConfig{Addr: cfg.Cache.RedisAddress(), Password: cfg.Cache.RedisPassword, DB: cfg.Cache.RedisDB},
		Prefix:     cfg.Cache.RedisPrefix,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	return &env{
		cfg:        cfg,
		repo:       repo,
		closeCache: closeCache,
		sync: service.NewSyncService(repo, client, cat, queryCache, locker, service.SyncConfig{
			ZipCode:     cfg.Sync.ZipCode,
			Concurrency: cfg.Sync.Concurrency,
			BatchSize:   cfg.Sync.BatchSize,
			LockTTL:     cfg.Sync.LockTTL,
		}),
		deals: service.NewDealService(repo, nil, 0),
	}, nil
}

func (e *env) Close() error {
	e.closeCache()
	return e.repo.Close()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type syncCommand struct {
	Zip  string `short:"z" long:"zip" description:"Zip code (default: profile zip, then SCRAPER_ZIP_CODE)"`
	JSON bool   `long:"json" description:"Print the full result as JSON"`
}

func (c *syncCommand) Execute([]string) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	zip := c.Zip
	if zip == "" {
		if prefs, err := openPreferences(); err == nil {
			zip, _ = prefs.ZipCode()
		}
	}

	if e.cfg.Sync.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, e.cfg.Sync.Timeout)
		defer cancelTimeout()
	}

	result, err := e.sync.Sync(ctx, zip)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Println(result.Message)
	fmt.Printf("%s flyers seen, %d matched, %d failed, %s expired deals purged in %s\n",
		humanize.Comma(int64(result.FlyersSeen)), result.FlyersMatched, result.FlyersFailed,
		humanize.Comma(result.Purged), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	return nil
}

type dealsCommand struct {
	Store    string `short:"s" long:"store" description:"Store slug"`
	Category string `short:"c" long:"category" description:"Category"`
	Query    string `short:"q" long:"query" description:"Case-insensitive item name search"`
	Limit    int    `short:"n" long:"limit" default:"25" description:"Maximum number of deals"`
	JSON     bool   `long:"json" description:"Print deals as JSON"`
}

func (c *dealsCommand) Execute([]string) error {
	if c.Category != "" && !catalog.IsCategory(strings.ToLower(c.Category)) {
		return fmt.Errorf("unknown category %q (one of %s)", c.Category, strings.Join(catalog.Taxonomy, ", "))
	}

	ctx, cancel := signalContext()
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	deals, err := e.deals.Query(ctx, model.DealQuery{
		Store:    c.Store,
		Category: c.Category,
		Search:   c.Query,
		Limit:    c.Limit,
	})
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deals)
	}
	printDeals(os.Stdout, deals)
	return nil
}

func printDeals(out io.Writer, deals []model.DealWithStore) {
	if len(deals) == 0 {
		fmt.Fprintln(out, "No deals found")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tITEM\tPRICE\tCATEGORY\tVALID TO")
	for _, d := range deals {
		store := d.StoreID
		if d.Store != nil {
			store = d.Store.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", store, d.ItemName, deref(d.Price, "-"), d.Category, deref(d.ValidTo, "-"))
	}
	tw.Flush()
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mempirate/scrapeview/backend"
	"github.com/mempirate/scrapeview/cache"
	"github.com/mempirate/scrapeview/config"
	"github.com/mempirate/scrapeview/document"
	"github.com/mempirate/scrapeview/log"
	"github.com/mempirate/scrapeview/scrape"
	"github.com/mempirate/scrapeview/server"
	"github.com/mempirate/scrapeview/store"
)

const (
	Version = "0.1.0"
	DB_NAME = "scrapeview.db"
	// EXPORT_DIR is the directory under the data dir used by `scrape --save`.
	EXPORT_DIR = "exports"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
	engine     string
}

// app holds what every command needs. close must be called when done.
type app struct {
	cfg     *config.Config
	creds   *cache.BoltCache
	backend *backend.Backend
}

func (a *app) close() {
	a.creds.Close()
}

func setup(flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.dataDir != "" {
		cfg.DataDir = os.ExpandEnv(flags.dataDir)
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.engine != "" {
		cfg.Engine = flags.engine
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.SetLevel(cfg.LogLevel)

	// Ensure datadir exists
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	creds, err := cache.NewBoltCache(filepath.Join(cfg.DataDir, DB_NAME))
	if err != nil {
		return nil, err
	}

	factory, err := scrape.NewFactory(cfg)
	if err != nil {
		creds.Close()
		return nil, err
	}

	key := backend.ResolveAPIKey(cfg.APIKey, creds)

	return &app{
		cfg:     cfg,
		creds:   creds,
		backend: backend.NewBackend(key, factory, creds),
	}, nil
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "scrapeview",
		Short: "Scrape web pages into markdown and HTML",
		Long: `scrapeview submits a URL to a scraping engine (Firecrawl, or a direct
in-process fetcher) and shows the extracted markdown and HTML in a browser,
or prints it as JSON.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for the credential database and exports")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.engine, "engine", "", "Scraping engine (firecrawl, direct)")

	cmd.AddCommand(
		serveCmd(flags),
		scrapeCmd(flags),
		keyCmd(flags),
		exportsCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("scrapeview version %s\n", Version)
			},
		},
	)

	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if addr != "" {
				a.cfg.Addr = addr
			}

			return serve(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func serve(ctx context.Context, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := log.NewLogger("main")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(ctx, a.backend, a.cfg)
	httpSrv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", a.cfg.Addr).Str("engine", a.cfg.Engine).Str("dataDir", a.cfg.DataDir).Msg("Listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := httpSrv.Shutdown(shutdownCtx)
		srv.Wait()
		return err
	})

	return eg.Wait()
}

func scrapeCmd(flags *globalFlags) *cobra.Command {
	var (
		formats []string
		crawl   bool
		limit   int
		out     string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape a URL and print or export the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if len(formats) == 0 {
				formats = a.cfg.DefaultFormats
			}

			req := backend.Request{
				URL:     args[0],
				Formats: formats,
				Mode:    scrape.ModeScrape,
				Limit:   limit,
			}
			if crawl {
				req.Mode = scrape.ModeCrawl
				if req.Limit == 0 {
					req.Limit = a.cfg.CrawlLimit
				}
			}

			if save {
				out = filepath.Join(a.cfg.DataDir, EXPORT_DIR)
			}

			return runScrape(cmd.Context(), a, req, out)
		},
	}

	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Output formats (markdown, html)")
	cmd.Flags().BoolVar(&crawl, "crawl", false, "Crawl the site instead of scraping a single page (bounded by crawlTimeout in the config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of pages to crawl")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the JSON export to this directory instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Write the JSON export to the data directory")

	return cmd
}

func runScrape(ctx context.Context, a *app, req backend.Request, out string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := log.NewLogger("main")

	sub, err := a.backend.Submit(ctx, req, func(value int) {
		log.Debug().Int("progress", value).Msg("Scrape progress")
	})
	if err != nil {
		return err
	}

	if err := sub.Err(); err != nil && backend.IsCollaborator(err) {
		return err
	}

	fmt.Fprintln(os.Stderr, sub.Message())

	data, err := document.PagesJSON(sub.Result.Pages)
	if err != nil {
		return err
	}

	if out == "" {
		fmt.Println(string(data))
		return nil
	}

	name := document.DEFAULT_NAME + ".json"
	if len(sub.Result.Pages) > 0 {
		name = document.FromPage(sub.Result.Pages[0], sub.Request.URL).FileName(".json")
	}

	fs := store.NewFileStore(out)
	name, err = exportName(fs, name)
	if err != nil {
		return err
	}

	if err := fs.Store(name, bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, "failed to store export")
	}

	log.Info().Str("path", fs.Path(name)).Int("pages", len(sub.Result.Pages)).Msg("Export written")

	return nil
}

// exportName returns name, or name with a numeric suffix when an export with
// that name already exists.
func exportName(fs *store.FileStore, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 2; ; i++ {
		exists, err := fs.Contains(candidate)
		if err != nil {
			return "", errors.Wrapf(err, "failed to check export %s", candidate)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

func keyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored API key",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key>",
			Short: "Store the API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := setup(flags)
				if err != nil {
					return err
				}
				defer a.close()

				return a.backend.SetAPIKey(args[0])
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the API key in use, masked",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := setup(flags)
				if err != nil {
					return err
				}
				defer a.close()

				key := a.backend.APIKey()
				if key == "" {
					fmt.Println("no API key configured")
					return nil
				}

				fmt.Println(config.MaskKey(key))
				return nil
			},
		},
	)

	return cmd
}

func exportsCmd(flags *globalFlags) *cobra.Command {
	exportStore := func() (*store.FileStore, error) {
		a, err := setup(flags)
		if err != nil {
			return nil, err
		}
		defer a.close()

		return store.NewFileStore(filepath.Join(a.cfg.DataDir, EXPORT_DIR)), nil
	}

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List exports written with scrape --save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := exportStore()
			if err != nil {
				return err
			}

			files, err := fs.List()
			if err != nil {
				return err
			}

			for _, f := range files {
				fmt.Println(f)
			}

			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := exportStore()
			if err != nil {
				return err
			}

			return showExport(os.Stdout, fs, args[0])
		},
	})

	return cmd
}

func showExport(w io.Writer, fs *store.FileStore, name string) error {
	r, err := fs.Get(name)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("no export named %q", name)
		}
		return errors.Wrapf(err, "failed to open export %s", name)
	}
	defer r.Close()

	_, err = io.Copy(w, r)
	return err
}

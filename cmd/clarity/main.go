package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/clarity/internal/app"
	"github.com/hyperifyio/clarity/internal/history"
	"github.com/hyperifyio/clarity/internal/normalize"
	"github.com/hyperifyio/clarity/internal/server"
	"github.com/hyperifyio/clarity/internal/settings"
	"github.com/hyperifyio/clarity/internal/view"
)

const usage = `usage: clarity [flags] <command> [args]

commands:
  summarize <url>            summarize a page (-history reuses a stored summary)
  ask <url> <question>       answer a question about a page
  history                    list stored summaries (-clear removes them)
  show <url>                 print the stored summary for a page
  card <url> -out FILE       write the share card PNG
  export <url> -out FILE     write the summary PDF
  share <url>                print the tweet link and search links
  settings                   print or change stored settings
  serve                      run the local HTTP API
  version                    print build information
`

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error().Err(err).Str("kind", view.Kind(err)).Msg("run failed")
		os.Exit(1)
	}
}

// run parses global flags, builds the configuration and dispatches args to
// a command.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("clarity", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage+"\nflags:\n")
		fs.PrintDefaults()
	}
	var (
		configPath string
		envFiles   string
		fl         = app.DefaultConfig()
	)
	fs.StringVar(&configPath, "config", os.Getenv("CLARITY_CONFIG"), "Path to a YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files loaded before reading the environment")
	fs.BoolVar(&fl.Verbose, "v", false, "Verbose logging")
	fs.StringVar(&fl.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&fl.LLMModel, "llm.model", "", "Model name (default gpt-4o-mini)")
	fs.StringVar(&fl.LLMAPIKey, "llm.key", "", "API key; a key saved in settings takes precedence")
	fs.DurationVar(&fl.LLMTimeout, "llm.timeout", fl.LLMTimeout, "Timeout for one model call")
	fs.StringVar(&fl.ExtractStrategy, "extract", fl.ExtractStrategy, "Extraction strategy: selectors or readability")
	fs.StringVar(&fl.UserAgent, "ua", "", "User-Agent for page loads")
	fs.DurationVar(&fl.FetchTimeout, "fetch.timeout", fl.FetchTimeout, "Timeout for one page request")
	fs.IntVar(&fl.FetchAttempts, "fetch.attempts", fl.FetchAttempts, "Attempts per page load, including the first")
	fs.StringVar(&fl.CacheDir, "cache.dir", fl.CacheDir, "Cache directory; empty disables caching")
	fs.DurationVar(&fl.CacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this; 0 disables")
	fs.BoolVar(&fl.CacheClear, "cache.clear", false, "Clear the cache directory on start")
	fs.BoolVar(&fl.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache and store permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&fl.LLMCache, "cache.llm", false, "Serve repeated identical prompts from the cache")
	fs.StringVar(&fl.StoreBackend, "store", fl.StoreBackend, "Store backend: file, sqlite, redis or memory")
	fs.StringVar(&fl.StoreDir, "store.dir", fl.StoreDir, "Directory for the file backend and the default SQLite database")
	fs.StringVar(&fl.SQLitePath, "store.sqlite", "", "SQLite database path (default <store.dir>/clarity.db)")
	fs.StringVar(&fl.RedisAddr, "redis.addr", "", "Redis address for the redis backend")
	fs.IntVar(&fl.RedisDB, "redis.db", 0, "Redis database number")
	fs.Uint64Var(&fl.CardSeed, "card.seed", 0, "Seed for card gradient choice; 0 picks at random")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	cfg := app.DefaultConfig()
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return err
		}
	}
	app.ApplyEnvOverrides(&cfg)
	fs.Visit(func(f *flag.Flag) { applyFlag(&cfg, fl, f.Name) })

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "version" {
		fmt.Fprintf(stdout, "clarity %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return nil
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	switch cmd {
	case "summarize":
		return cmdSummarize(ctx, a, cmdArgs, stdout)
	case "ask":
		return cmdAsk(ctx, a, cmdArgs, stdout)
	case "history":
		return cmdHistory(ctx, a, cmdArgs, stdout)
	case "show":
		return cmdShow(ctx, a, cmdArgs, stdout)
	case "card":
		return cmdCard(ctx, a, cmdArgs, stdout)
	case "export":
		return cmdExport(ctx, a, cmdArgs, stdout)
	case "share":
		return cmdShare(ctx, a, cmdArgs, stdout)
	case "settings":
		return cmdSettings(ctx, a, cmdArgs, stdout)
	case "serve":
		return cmdServe(ctx, a, cfg.ListenAddr, cmdArgs)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// applyFlag copies an explicitly set flag from fl onto cfg so flags win over
// file and environment values.
func applyFlag(cfg *app.Config, fl app.Config, name string) {
	switch name {
	case "v":
		cfg.Verbose = fl.Verbose
	case "llm.base":
		cfg.LLMBaseURL = fl.LLMBaseURL
	case "llm.model":
		cfg.LLMModel = fl.LLMModel
	case "llm.key":
		cfg.LLMAPIKey = fl.LLMAPIKey
	case "llm.timeout":
		cfg.LLMTimeout = fl.LLMTimeout
	case "extract":
		cfg.ExtractStrategy = fl.ExtractStrategy
	case "ua":
		cfg.UserAgent = fl.UserAgent
	case "fetch.timeout":
		cfg.FetchTimeout = fl.FetchTimeout
	case "fetch.attempts":
		cfg.FetchAttempts = fl.FetchAttempts
	case "cache.dir":
		cfg.CacheDir = fl.CacheDir
	case "cache.maxAge":
		cfg.CacheMaxAge = fl.CacheMaxAge
	case "cache.clear":
		cfg.CacheClear = fl.CacheClear
	case "cache.strictPerms":
		cfg.CacheStrictPerms = fl.CacheStrictPerms
	case "cache.llm":
		cfg.LLMCache = fl.LLMCache
	case "store":
		cfg.StoreBackend = fl.StoreBackend
	case "store.dir":
		cfg.StoreDir = fl.StoreDir
	case "store.sqlite":
		cfg.SQLitePath = fl.SQLitePath
	case "redis.addr":
		cfg.RedisAddr = fl.RedisAddr
	case "redis.db":
		cfg.RedisDB = fl.RedisDB
	case "card.seed":
		cfg.CardSeed = fl.CardSeed
	}
}

// urlArg parses command flags and returns the single URL argument.
func urlArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("%s: url argument required", fs.Name())
	}
	return fs.Arg(0), nil
}

func cmdSummarize(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	useHistory := fs.Bool("history", false, "Show the stored summary when one exists")
	asJSON := fs.Bool("json", false, "Print the summary as JSON")
	url, err := urlArg(fs, args)
	if err != nil {
		return err
	}
	st, err := a.Load(ctx, url, !*useHistory)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(w, st.Summary)
	}
	set, err := a.Settings(ctx)
	if err != nil {
		return err
	}
	printResult(w, st, set)
	return nil
}

func cmdAsk(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	if len(args) < 2 {
		return errors.New("ask: url and question required")
	}
	if _, err := a.Summarize(ctx, args[0]); err != nil {
		return err
	}
	st, err := a.Ask(ctx, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(w, st.Answer)
	return nil
}

func cmdHistory(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	clearAll := fs.Bool("clear", false, "Remove every stored summary")
	asJSON := fs.Bool("json", false, "Print entries in their stored form")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clearAll {
		if err := a.ClearHistory(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "history cleared")
		return nil
	}
	list, err := a.History(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "no summaries yet")
		return nil
	}
	now := time.Now()
	for _, e := range list {
		printHistoryLine(w, e, now)
	}
	return nil
}

func printHistoryLine(w io.Writer, e history.Entry, now time.Time) {
	title := e.Title
	if title == "" {
		title = e.URL
	}
	fmt.Fprintf(w, "%s %s  (%s)\n   %s\n   %s\n", normalize.TypeIcon(e.Summary.ArticleType), title, view.RelativeTime(e.Time(), now), e.Summary.TLDR, e.URL)
}

func cmdShow(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	url, err := urlArg(fs, args)
	if err != nil {
		return err
	}
	st, err := a.SelectHistory(ctx, url)
	if err != nil {
		return err
	}
	set, err := a.Settings(ctx)
	if err != nil {
		return err
	}
	printResult(w, st, set)
	return nil
}

func cmdCard(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("card", flag.ContinueOnError)
	out := fs.String("out", "clarity-summary.png", "Output PNG path")
	url, err := urlArg(fs, args)
	if err != nil {
		return err
	}
	if _, err := a.Load(ctx, url, false); err != nil {
		return err
	}
	b, err := a.CardPNG()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	fmt.Fprintln(w, *out)
	return nil
}

func cmdExport(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "clarity-summary.pdf", "Output PDF path")
	url, err := urlArg(fs, args)
	if err != nil {
		return err
	}
	if _, err := a.Load(ctx, url, false); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := a.ExportPDF(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(w, *out)
	return nil
}

func cmdShare(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	url, err := urlArg(fs, args)
	if err != nil {
		return err
	}
	if _, err := a.Load(ctx, url, false); err != nil {
		return err
	}
	links, err := a.Share()
	if err != nil {
		return err
	}
	return writeJSON(w, links)
}

func cmdSettings(ctx context.Context, a *app.App, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	key := fs.String("set-key", "", "Save an API key; an empty value removes it")
	showTone := fs.Bool("tone", true, "Show the tone badge")
	showEntities := fs.Bool("entities", true, "Show entity badges")
	showReadTime := fs.Bool("read-time", true, "Show the read-time badge")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var p settings.Patch
	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		switch f.Name {
		case "set-key":
			p.APIKey = key
		case "tone":
			p.ShowTone = showTone
		case "entities":
			p.ShowEntities = showEntities
		case "read-time":
			p.ShowReadTime = showReadTime
		}
	})
	var (
		set settings.Settings
		err error
	)
	if changed {
		set, err = a.UpdateSettings(ctx, p)
	} else {
		set, err = a.Settings(ctx)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, set.Masked())
}

func cmdServe(ctx context.Context, a *app.App, addr string, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.New(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func printResult(w io.Writer, st view.State, set settings.Settings) {
	if st.Summary == nil {
		return
	}
	s := st.Summary
	if st.Article.Title != "" {
		fmt.Fprintln(w, st.Article.Title)
	}
	labels := make([]string, 0, 8)
	for _, b := range view.Badges(st, set) {
		labels = append(labels, b.Label)
	}
	fmt.Fprintln(w, strings.Join(labels, "  "))
	fmt.Fprintf(w, "\nTL;DR  %s\n", s.TLDR)
	if len(s.KeyTakeaways) > 0 {
		fmt.Fprintln(w, "\nKey takeaways")
		for i, t := range s.KeyTakeaways {
			fmt.Fprintf(w, "  %02d  %s\n", i+1, t)
		}
	}
	if len(s.Tags) > 0 {
		tags := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			tags = append(tags, normalize.Hashtag(t))
		}
		fmt.Fprintf(w, "\n%s\n", strings.Join(tags, " "))
	}
	if st.FromHistory {
		fmt.Fprintln(w, "\n(from history)")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

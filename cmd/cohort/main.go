// Package main is the cohort CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/cohort/internal/cli"
	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/fileid"
	"github.com/hyperjump/cohort/internal/indexer"
	"github.com/hyperjump/cohort/internal/ingest"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/pipeline"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/hyperjump/cohort/internal/server"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/watcher"
	"github.com/hyperjump/cohort/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/cohort/config.yaml"

// configPathDefault is the --config default: COHORT_CONFIG when set (a .env
// file in the working directory is read first), else defaultConfigPath.
func configPathDefault() string {
	if p := os.Getenv("COHORT_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). A default path that does
// not exist yields the built-in defaults so one-off commands work without setup.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
			cfg = &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "analyze":
		runAnalyze()
	case "similar":
		runSimilar()
	case "search":
		runSearch()
	case "list":
		runList()
	case "show":
		runShow()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("cohort version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

// openComponents loads config and opens every store for a one-shot command.
func openComponents(command, configPath string, debug bool) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	logger, err := utils.CommandLogger(command, cfg.Debug || debug)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	return components, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (imports, watched file changes, requests)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		indexer.NewFileHandler(components.Indexer, cfg.Watch.Extensions),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer watchSvc.Stop()
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(server.Deps{
		Analyzer:   components.Analyzer,
		Search:     components.Search,
		Indexer:    components.Indexer,
		Storage:    components.Storage,
		Keyword:    components.KeywordIndex,
		Config:     cfg,
		ConfigPath: resolvedConfigPath,
		Watch:      watchSvc,
		Logger:     logger,
	})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fail("Usage: cohort import [flags] <file-or-directory>...")
	}
	format := parseFormat(*outputFormat)

	components, logger := openComponents("import", *configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	var reports []*indexer.ImportReport
	for _, path := range fs.Args() {
		info, err := os.Stat(path)
		if err != nil {
			fail("Failed to stat path: %v", err)
		}
		if info.IsDir() {
			dirReports, err := components.Indexer.IndexDirectory(ctx, path, components.Config.Watch.Extensions)
			reports = append(reports, dirReports...)
			if err != nil {
				_ = cli.WriteImportReports(os.Stdout, reports, format)
				fail("Importing directory failed: %v", err)
			}
			continue
		}
		// Single file: no extension filter beyond the supported formats.
		report, err := components.Indexer.IndexFile(ctx, path, nil)
		if err != nil {
			_ = cli.WriteImportReports(os.Stdout, reports, format)
			fail("Importing %s failed: %v", path, err)
		}
		reports = append(reports, report)
	}
	if err := cli.WriteImportReports(os.Stdout, reports, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// optionalFloat and optionalUint record whether a flag was given at all, so
// an explicit zero is distinguishable from "use the config value".
func optionalFloat(fs *flag.FlagSet, name, usage string) **float64 {
	var p *float64
	fs.Func(name, usage, func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		p = &v
		return nil
	})
	return &p
}

func optionalUint(fs *flag.FlagSet, name, usage string) **uint64 {
	var p *uint64
	fs.Func(name, usage, func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		p = &v
		return nil
	})
	return &p
}

// splitIDs parses a comma-separated --ids value.
func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// loadProfileFiles reads profiles from files without storing them. Records
// without an ID are named after their file and row.
func loadProfileFiles(loader *ingest.Loader, paths []string) ([]*models.Profile, error) {
	var profiles []*models.Profile
	for _, path := range paths {
		inputs, err := loader.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for row, in := range inputs {
			id := in.ID
			if id == "" {
				id = fileid.RowID(path, row)
			}
			label := in.Label
			if label == "" {
				label = id
			}
			profiles = append(profiles, &models.Profile{ID: id, Label: label, Fields: in.Fields})
		}
	}
	return profiles, nil
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	threshold := optionalFloat(fs, "threshold", "complete-linkage distance threshold (default from config)")
	seed := optionalUint(fs, "seed", "projection seed (default from config)")
	dimensions := fs.Int("dimensions", 0, "projection dimensions (default from config)")
	noCluster := fs.Bool("no-cluster", false, "skip clustering")
	noProject := fs.Bool("no-project", false, "skip the projection")
	skipInvalid := fs.Bool("skip-invalid", false, "report invalid profiles instead of failing")
	ids := fs.String("ids", "", "comma-separated stored profile IDs (default: all stored profiles)")
	outputFormat := fs.String("output", "text", "output format: text, json or xlsx")
	outPath := fs.String("out", "", "write output to this file instead of stdout")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	if format == cli.OutputXLSX && *outPath == "" {
		fail("xlsx output needs --out <file.xlsx>")
	}

	ctx := context.Background()
	var (
		cfg      *config.Config
		analyzer *pipeline.Engine
		profiles []*models.Profile
		logger   *zap.Logger
	)
	if fs.NArg() > 0 {
		// Files are analyzed directly; the stores are not opened.
		var err error
		cfg, _, err = loadConfig(*configPath)
		if err != nil {
			fail("Failed to load config: %v", err)
		}
		logger, err = utils.CommandLogger("analyze", cfg.Debug || *debug)
		if err != nil {
			fail("Failed to create logger: %v", err)
		}
		sc, err := loadSchema(cfg)
		if err != nil {
			fail("Failed to load schema: %v", err)
		}
		analyzer = pipeline.NewEngine(sc, pipeline.WithLogger(logger), pipeline.WithWorkers(cfg.Encoding.Workers))
		profiles, err = loadProfileFiles(ingest.NewLoader(sc), fs.Args())
		if err != nil {
			fail("Failed to read profiles: %v", err)
		}
	} else {
		var components *Components
		components, logger = openComponents("analyze", *configPath, *debug)
		defer components.Close()
		cfg, analyzer = components.Config, components.Analyzer
		var err error
		if *ids != "" {
			for _, id := range splitIDs(*ids) {
				p, getErr := components.Storage.GetProfile(ctx, id)
				if getErr != nil {
					fail("Profile %s: %v", id, getErr)
				}
				profiles = append(profiles, p)
			}
		} else if profiles, err = components.Storage.ListProfiles(ctx, 0, 0); err != nil {
			fail("Failed to list profiles: %v", err)
		}
	}
	defer logger.Sync()

	req := pipeline.RequestFromConfig(cfg)
	req.Cluster, req.Project = !*noCluster, !*noProject
	if *threshold != nil {
		req.Threshold = *threshold
	}
	if *seed != nil {
		req.Projection.Seed = *seed
	}
	if *dimensions > 0 {
		req.Projection.Dimensions = *dimensions
	}
	req.SkipInvalid = req.SkipInvalid || *skipInvalid

	analysis, err := analyzer.Run(ctx, profiles, req)
	if err != nil {
		fail("Analysis failed: %v", err)
	}

	var w io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fail("Failed to create %s: %v", *outPath, err)
		}
		defer f.Close()
		w = f
	}
	if err := cli.WriteAnalysis(w, analysis, format); err != nil {
		fail("Output failed: %v", err)
	}
	if *outPath != "" {
		fmt.Printf("Wrote %s (%d profiles, %d groups)\n", *outPath, len(analysis.Members), len(analysis.Groups))
	}
}

func runSimilar() {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	k := fs.Int("k", 0, "number of profiles (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fail("Usage: cohort similar [flags] <profile-id>")
	}
	format := parseFormat(*outputFormat)

	components, logger := openComponents("similar", *configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	profile, err := components.Storage.GetProfile(ctx, fs.Arg(0))
	if err != nil {
		fail("Profile %s: %v", fs.Arg(0), err)
	}
	n := *k
	if n <= 0 {
		n = components.Config.Search.DefaultSimilar
	}
	matches, err := components.Search.Similar(ctx, profile.ID, n)
	if err != nil {
		fail("Similar failed: %v", err)
	}
	if err := cli.WriteMatches(os.Stdout, profile.Label, matches, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: cohort search [flags] <text>\n\n")
	fmt.Fprintf(fs.Output(), "Text is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Text matches profile labels and field values. --like ranks profiles by
similarity to a stored profile; with text as well, only text matches are
ranked and both scores are combined.

Examples:
  cohort search computer science
  cohort search --fuzzy "computr science"        # typo-tolerant search
  cohort search --like s-042                     # profiles most like s-042
  cohort search --like s-042 evening             # evening people, most like s-042 first
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "cohort search math -limit 5"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the stores directly)")
	like := fs.String("like", "", "rank by similarity to this stored profile")
	limit := fs.Int("limit", 0, "number of results (default from config)")
	offset := fs.Int("offset", 0, "results to skip")
	minScore := fs.Float64("min-score", 0, "drop results scoring below this")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	q := &search.Query{
		Text:     buildSearchQuery(fs.Args()),
		Like:     *like,
		Fuzzy:    *fuzzy,
		Limit:    *limit,
		Offset:   *offset,
		MinScore: *minScore,
	}
	if q.Text == "" && q.Like == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	var response *search.Response
	var err error
	if *serverURL != "" {
		// Use the HTTP API when a server holds the index locks.
		response, err = searchViaHTTP(*serverURL, q)
	} else {
		components, logger := openComponents("search", *configPath, false)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Search.Search(context.Background(), q)
	}
	if err != nil {
		fail("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func searchViaHTTP(serverURL string, query *search.Query) (*search.Response, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response search.Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	limit := fs.Int("limit", 50, "number of profiles (0 = all)")
	offset := fs.Int("offset", 0, "profiles to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	components, logger := openComponents("list", *configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	profiles, err := components.Storage.ListProfiles(ctx, *offset, *limit)
	if err != nil {
		fail("List failed: %v", err)
	}
	total, err := components.Storage.CountProfiles(ctx)
	if err != nil {
		fail("Count failed: %v", err)
	}
	if err := cli.WriteProfiles(os.Stdout, profiles, total, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runShow() {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fail("Usage: cohort show [flags] <profile-id>")
	}
	format := parseFormat(*outputFormat)

	components, logger := openComponents("show", *configPath, false)
	defer logger.Sync()
	defer components.Close()

	p, err := components.Storage.GetProfile(context.Background(), fs.Arg(0))
	if err != nil {
		fail("Profile %s: %v", fs.Arg(0), err)
	}
	if err := cli.WriteProfile(os.Stdout, p, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fail("Usage: cohort delete [flags] <profile-id>...")
	}

	components, logger := openComponents("delete", *configPath, false)
	defer logger.Sync()
	defer components.Close()

	for _, id := range fs.Args() {
		if err := components.Indexer.DeleteProfile(context.Background(), id); err != nil {
			fail("Deletion of %s failed: %v", id, err)
		}
		fmt.Printf("Profile deleted: %s\n", id)
	}
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	DatabasePath      string   `json:"database_path,omitempty"`
	BleveIndexPath    string   `json:"bleve_index_path,omitempty"`
	VectorIndexPath   string   `json:"vector_index_path,omitempty"`
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	ProjectionSeed    *uint64  `json:"projection_seed,omitempty"`
	Dimensions        int      `json:"dimensions,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Profiles         int64                 `json:"profiles"`
	VectorIndexSize  int                   `json:"vector_index_size"`
	KeywordIndexSize *uint64               `json:"keyword_index_size,omitempty"`
	SchemaVersion    string                `json:"schema_version"`
	VectorLength     int                   `json:"vector_length"`
	DiskUsageBytes   *int64                `json:"disk_usage_bytes,omitempty"`
	WatchDirectories []string              `json:"watch_directories,omitempty"`
	Config           *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", configPathDefault(), "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the stores directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status *statusResponse
	if *serverURL != "" {
		var err error
		status, err = statusViaHTTP(*serverURL)
		if err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		components, logger := openComponents("status", *configPath, false)
		defer logger.Sync()
		defer components.Close()
		status = localStatus(components)
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}
	fmt.Printf("profiles:            %d\n", status.Profiles)
	fmt.Printf("vector_index_size:   %d\n", status.VectorIndexSize)
	if status.KeywordIndexSize != nil {
		fmt.Printf("keyword_index_size:  %d\n", *status.KeywordIndexSize)
	}
	fmt.Printf("schema_version:      %s (%d features)\n", status.SchemaVersion, status.VectorLength)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:    %d\n", *status.DiskUsageBytes)
	}
	for _, d := range status.WatchDirectories {
		fmt.Printf("watching:            %s\n", d)
	}
	if c := status.Config; c != nil {
		fmt.Println()
		fmt.Println("# configuration")
		if c.DistanceThreshold != nil {
			fmt.Printf("distance_threshold:  %g\n", *c.DistanceThreshold)
		} else {
			fmt.Println("distance_threshold:  (unset)")
		}
		if c.ProjectionSeed != nil {
			fmt.Printf("projection_seed:     %d\n", *c.ProjectionSeed)
		} else {
			fmt.Println("projection_seed:     (unset)")
		}
		fmt.Printf("dimensions:          %d\n", c.Dimensions)
		if c.DatabasePath != "" {
			fmt.Printf("database_path:       %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Printf("bleve_index_path:    %s\n", c.BleveIndexPath)
		}
		if c.VectorIndexPath != "" {
			fmt.Printf("vector_index_path:   %s\n", c.VectorIndexPath)
		}
	}
}

func localStatus(c *Components) *statusResponse {
	count, err := c.Storage.CountProfiles(context.Background())
	if err != nil {
		fail("Count profiles failed: %v", err)
	}
	st := c.Config.Storage
	status := &statusResponse{
		Profiles:        count,
		VectorIndexSize: c.Search.VectorIndexSize(),
		SchemaVersion:   c.Schema.Version,
		VectorLength:    c.Schema.Length(),
		Config: &statusConfigResponse{
			DatabasePath:      st.DatabasePath,
			BleveIndexPath:    st.BleveIndexPath,
			VectorIndexPath:   st.VectorIndexPath,
			DistanceThreshold: c.Config.Cluster.DistanceThreshold,
			ProjectionSeed:    c.Config.Projection.Seed,
			Dimensions:        c.Config.Projection.Dimensions,
		},
	}
	if n, err := c.KeywordIndex.DocCount(); err == nil {
		status.KeywordIndexSize = &n
	}
	if usage, err := storage.DiskUsage(st.DatabasePath, st.BleveIndexPath, st.VectorIndexPath); err == nil {
		status.DiskUsageBytes = &usage.Total
	}
	return status
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: cohort watch <add|remove|list> [path]")
		fmt.Println("  cohort watch add <path>     Add an import directory to watch")
		fmt.Println("  cohort watch remove <path>  Stop watching an import directory")
		fmt.Println("  cohort watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fail("Usage: cohort watch add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]any{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fail("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fail("Add failed (%d): %s", resp.StatusCode, string(b))
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fail("Usage: cohort watch remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fail("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fail("Remove failed (%d): %s", resp.StatusCode, string(b))
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fail("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fail("List failed (%d): %s", resp.StatusCode, string(b))
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fail("Parse failed: %v", err)
		}
		sort.Strings(out.Directories)
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fail("Unknown watch subcommand: %s", sub)
	}
}

func printUsage() {
	fmt.Println(`cohort - Group and map people by profile similarity

Usage:
  cohort server [flags]                 Start the HTTP server and import watcher
  cohort import [flags] <path>...       Import profiles from json, yaml or xlsx files
  cohort analyze [flags] [file...]      Similarity, groups and coordinates for profiles
  cohort similar [flags] <id>           Profiles most similar to one profile
  cohort search [flags] <text>          Search profiles by label and field values
  cohort list [flags]                   List stored profiles
  cohort show [flags] <id>              Show one profile
  cohort delete [flags] <id>...         Delete profiles
  cohort status [flags]                 Show store and index status
  cohort watch <add|remove|list>        Manage watched import directories
  cohort version                        Show version
  cohort help                           Show this help

Common Flags:
  --config string    Config file path (default: $COHORT_CONFIG, ./config.yaml or
                     /usr/local/etc/cohort/config.yaml)
  --output string    Output format: text or json (analyze also takes xlsx)

Analyze Flags:
  --threshold float  Complete-linkage distance threshold (default from config)
  --seed uint        Projection seed (default from config)
  --dimensions int   Projection dimensions (default from config)
  --no-cluster       Skip clustering
  --no-project       Skip the projection
  --skip-invalid     Report invalid profiles instead of failing
  --ids string       Comma-separated stored profile IDs (default: all)
  --out string       Write output to a file (required for xlsx)

Search Flags:
  --like string      Rank by similarity to a stored profile
  --fuzzy            Enable fuzzy matching for typo tolerance
  --limit, --offset  Paging
  --min-score float  Drop results scoring below this
  --server string    Use a running server instead of opening the stores

Examples:
  cohort import students.xlsx
  cohort analyze --threshold 0.45 --seed 7
  cohort analyze --threshold 0.45 --seed 7 --output xlsx --out groups.xlsx
  cohort analyze --no-project --threshold 0.5 class-a.json class-b.yaml
  cohort similar --k 3 s-042
  cohort search --fuzzy "computr science"
  cohort watch add ~/cohort/imports`)
}

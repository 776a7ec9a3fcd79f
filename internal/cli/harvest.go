package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/facultyscope/internal/model"
	"github.com/ppiankov/facultyscope/internal/observability"
	"github.com/ppiankov/facultyscope/internal/output"
	"github.com/ppiankov/facultyscope/internal/pipeline"
	"github.com/ppiankov/facultyscope/internal/store"
	"github.com/ppiankov/facultyscope/internal/worker"
)

var (
	skipFaculty    bool
	skipPapers     bool
	facultyInput   string
	namesFile      string
	noCache        bool
	harvestTimeout time.Duration
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest faculty records and their papers",
	Long: `Harvest runs the faculty stage and then the paper stage:
- Collect every configured college concurrently and fold duplicate people
- Search the library for each faculty member
- Keep the articles whose text matches the member's research subject
- Write both result sets as JSONL (and to the run store when --db is set)

Example:
  facultyscope harvest
  facultyscope harvest --skip-papers
  facultyscope harvest --skip-faculty --faculty-input data/information.jsonl
  facultyscope harvest --skip-faculty --db runs.db --names names.txt
  facultyscope harvest --scheme embedding --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	defaults := model.DefaultConfig()
	flags := harvestCmd.Flags()

	flags.BoolVar(&skipFaculty, "skip-faculty", false, "reuse faculty records instead of collecting the colleges")
	flags.BoolVar(&skipPapers, "skip-papers", false, "stop after the faculty stage")
	flags.StringVar(&facultyInput, "faculty-input", "", "faculty JSONL used with --skip-faculty (default: latest run in --db, else the faculty output)")
	flags.StringVar(&namesFile, "names", "", "file of faculty names (one per line) limiting the paper stage")
	flags.BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetch)")
	flags.DurationVar(&harvestTimeout, "timeout", 2*time.Hour, "total timeout for the harvest")

	flags.String("faculty-out", defaults.Output.FacultyPath, "faculty JSONL output path")
	flags.String("papers-out", defaults.Output.PapersPath, "papers JSONL output path")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while harvesting")
	flags.String("scheme", defaults.Relevance.Scheme, "relevance scheme (tfidf, embedding)")
	flags.Float64("threshold", 0, "relevance threshold (0 selects the scheme default)")
	flags.Bool("source-order", false, "fold colleges in configuration order")
	flags.String("institution", defaults.Library.Institution, "library institution code")

	_ = viper.BindPFlag("output.faculty_path", flags.Lookup("faculty-out"))
	_ = viper.BindPFlag("output.papers_path", flags.Lookup("papers-out"))
	_ = viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = viper.BindPFlag("relevance.scheme", flags.Lookup("scheme"))
	_ = viper.BindPFlag("relevance.threshold", flags.Lookup("threshold"))
	_ = viper.BindPFlag("dedup.source_order", flags.Lookup("source-order"))
	_ = viper.BindPFlag("library.institution", flags.Lookup("institution"))
}

func runHarvest(cmd *cobra.Command, args []string) error {
	if skipFaculty && skipPapers {
		return errors.New("--skip-faculty and --skip-papers leave nothing to do")
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), harvestTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("facultyscope")
	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, metrics, logger)
		defer shutdown()
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
	}

	p := pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
	)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  facultyscope harvest\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Colleges:   %d\n", len(cfg.Colleges))
	fmt.Fprintf(os.Stderr, "  Library:    %s (%s)\n", cfg.Library.BaseURL, cfg.Library.Institution)
	fmt.Fprintf(os.Stderr, "  Relevance:  %s\n", cfg.Relevance.Scheme)
	fmt.Fprintf(os.Stderr, "\n")

	var runID string
	if st != nil {
		runID, err = st.BeginRun(ctx)
		if err != nil {
			return err
		}
	}
	finish := func(status string) {
		if st == nil {
			return
		}
		// The harvest context may already be done.
		if err := st.FinishRun(context.Background(), runID, status); err != nil {
			logger.Warn().Err(err).Str("run", runID).Msg("could not finish run")
		}
	}

	h := &harvester{cfg: cfg, pipeline: p, store: st, runID: runID}
	if err := h.run(ctx); err != nil {
		finish(store.StatusFailed)
		return err
	}
	finish(store.StatusComplete)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Harvest Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Faculty:   %d\n", h.faculty)
	if !skipPapers {
		fmt.Fprintf(os.Stderr, "  Papers:    %d\n", h.papers)
	}
	if runID != "" {
		fmt.Fprintf(os.Stderr, "  Run:       %s\n", runID)
	}
	fmt.Fprintf(os.Stderr, "\n")
	return nil
}

// harvester runs the two stages of one harvest
type harvester struct {
	cfg      *model.Config
	pipeline *pipeline.Pipeline
	store    *store.Store
	runID    string

	faculty int
	papers  int
}

func (h *harvester) run(ctx context.Context) error {
	var records []model.FacultyRecord
	var err error

	if skipFaculty {
		records, err = h.loadFaculty(ctx)
	} else {
		records, err = h.harvestFaculty(ctx)
	}
	if err != nil {
		return err
	}
	h.faculty = len(records)

	if h.store != nil {
		if err := h.store.SaveFaculty(ctx, h.runID, records); err != nil {
			return err
		}
	}
	if skipPapers {
		return nil
	}

	if namesFile != "" {
		names, err := worker.ReadNamesFromFile(namesFile)
		if err != nil {
			return fmt.Errorf("read names: %w", err)
		}
		records = worker.FilterByNames(records, names)
		fmt.Fprintf(os.Stderr, "✓ %d faculty selected from %s\n", len(records), namesFile)
	}

	return h.harvestPapers(ctx, records)
}

func (h *harvester) harvestFaculty(ctx context.Context) ([]model.FacultyRecord, error) {
	fmt.Fprintf(os.Stderr, "⚙️  Collecting faculty from %d colleges...\n", len(h.cfg.Colleges))

	result, err := h.pipeline.HarvestFaculty(ctx)
	if err != nil {
		return nil, fmt.Errorf("harvest faculty: %w", err)
	}

	for _, src := range result.Summary.Sources {
		if src.Err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", src.Name, src.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d records\n", src.Name, src.Records)
	}

	if err := output.WriteAll(h.cfg.Output.FacultyPath, result.Records); err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "✓ %d faculty written to %s (%d merged, %s)\n",
		len(result.Records), h.cfg.Output.FacultyPath, result.Summary.Merged, result.Elapsed.Round(time.Millisecond))
	return result.Records, nil
}

// loadFaculty reads the faculty records of a previous harvest
func (h *harvester) loadFaculty(ctx context.Context) ([]model.FacultyRecord, error) {
	if facultyInput == "" && h.store != nil {
		records, runID, err := h.store.LatestFaculty(ctx)
		if err == nil {
			fmt.Fprintf(os.Stderr, "✓ %d faculty loaded from run %s\n", len(records), runID)
			return records, nil
		}
		if !errors.Is(err, store.ErrNoRun) {
			return nil, err
		}
	}

	path := facultyInput
	if path == "" {
		path = h.cfg.Output.FacultyPath
	}
	records, err := output.ReadFaculty(path)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "✓ %d faculty loaded from %s\n", len(records), path)
	return records, nil
}

func (h *harvester) harvestPapers(ctx context.Context, records []model.FacultyRecord) error {
	searcher, err := h.pipeline.NewSearcher()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Searching papers of %d faculty with %d workers...\n",
		len(records), h.cfg.Concurrency.PaperSearches)

	result, err := h.pipeline.HarvestPapers(ctx, records, searcher)
	if err != nil {
		return fmt.Errorf("harvest papers: %w", err)
	}
	h.papers = len(result.Papers)

	if err := output.WriteAll(h.cfg.Output.PapersPath, result.Papers); err != nil {
		return err
	}
	if h.store != nil {
		if err := h.store.SavePapers(ctx, h.runID, result.Papers); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "✓ %d papers written to %s (%d searches failed, %s)\n",
		len(result.Papers), h.cfg.Output.PapersPath, result.Failed, result.Elapsed.Round(time.Millisecond))
	return nil
}

// serveMetrics exposes the metrics handler on addr until the returned
// function is called
func serveMetrics(addr string, m *observability.Metrics, logger zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

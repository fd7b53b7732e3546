package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/himanishpuri/TrueLossless/internal/config"
	"github.com/himanishpuri/TrueLossless/pkg/logger"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/ranking"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless/spectral"
	"github.com/himanishpuri/TrueLossless/pkg/utils"
)

// Global flags
var (
	envFile   string
	dbPath    string
	tempDir   string
	noHistory bool
	env       *config.Env
)

func main() {
	log := logger.GetLogger()

	flag.StringVar(&envFile, "env", ".env", "Optional dotenv file with settings")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite history database (env: TRUELOSSLESS_DB_PATH)")
	flag.StringVar(&tempDir, "temp", "", "Directory for temporary decode and preview files (env: TRUELOSSLESS_TEMP_DIR)")
	flag.BoolVar(&noHistory, "no-history", false, "Do not record verdicts or picks")
	flag.Usage = printUsage
	flag.Parse()

	var err error
	env, err = config.Load(envFile)
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(env.Level())
	if dbPath == "" {
		dbPath = env.DBPath
	}
	if tempDir == "" {
		tempDir = env.TempDir
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	log.Debugf("Executing command: %s", command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case "analyze":
		handleAnalyze(ctx, args[1:])
	case "preview":
		handlePreview(ctx, args[1:])
	case "rank":
		handleRank(ctx, args[1:])
	case "scan":
		handleScan(ctx, args[1:])
	case "history":
		handleHistory(args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// createService creates a new TrueLossless service with configured options
func createService() (truelossless.Service, error) {
	log := logger.GetLogger()

	ranker, err := env.Ranker(log)
	if err != nil {
		return nil, err
	}

	opts := []truelossless.Option{
		truelossless.WithDBPath(dbPath),
		truelossless.WithTempDir(tempDir),
		truelossless.WithAnalysisWindow(env.AnalysisWindowSecs),
		truelossless.WithPreviewDuration(env.PreviewDurationSecs),
		truelossless.WithRanker(ranker),
	}
	if noHistory {
		opts = append(opts, truelossless.WithoutHistory())
	}
	return truelossless.NewService(opts...)
}

func mustCreateService() truelossless.Service {
	svc, err := createService()
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		logger.GetLogger().Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	return svc
}

// parseSubcommand lets positional arguments come before flags, e.g.
// "analyze song.flac --json".
func parseSubcommand(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional = append(positional, args[0])
		args = args[1:]
	}
	fs.Parse(args)
	return append(positional, fs.Args()...)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Printf("❌ Failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

func handleAnalyze(ctx context.Context, args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	asJSON := cmd.Bool("json", false, "Print the report as JSON")
	specOut := cmd.String("spectrogram", "", "Also write a spectrogram PNG of the analysis window")
	paths := parseSubcommand(cmd, args)

	if len(paths) == 0 {
		fmt.Println("Usage: truelossless analyze <audio_file>... [--json] [--spectrogram out.png]")
		os.Exit(1)
	}
	if *specOut != "" && len(paths) > 1 {
		fmt.Println("Error: --spectrogram takes a single audio file")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	failed := 0
	var reports []*truelossless.Report
	for _, path := range paths {
		rep, err := svc.Verify(ctx, path)
		if err != nil {
			failed++
			if errors.Is(err, truelossless.ErrDecodeFailure) {
				fmt.Printf("❓ %s: could not decode (%v)\n", path, err)
			} else {
				fmt.Printf("❌ %s: %v\n", path, err)
			}
			continue
		}
		reports = append(reports, rep)
		if !*asJSON {
			v := rep.Verdict
			fmt.Printf("%s\n   %s\n", filepath.Base(path), v.Display())
			fmt.Printf("   %dbit/%.1fkHz | Nyquist %.2fkHz | %s\n", v.BitDepth, float64(v.SampleRate)/1000, v.NyquistKHz, humanize.Bytes(uint64(rep.FileSize)))
		}
	}

	if *asJSON {
		printJSON(reports)
	}

	if *specOut != "" && failed == 0 {
		if err := svc.Spectrogram(ctx, paths[0], *specOut); err != nil {
			fmt.Printf("❌ Failed to render spectrogram: %v\n", err)
			log.Errorf("Spectrogram failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("🖼  Spectrogram written to %s\n", *specOut)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func handlePreview(ctx context.Context, args []string) {
	cmd := flag.NewFlagSet("preview", flag.ExitOnError)
	out := cmd.String("out", "", "Where to move the clip (default: keep in the temp dir)")
	rest := parseSubcommand(cmd, args)

	if len(rest) != 1 {
		fmt.Println("Usage: truelossless preview <audio_file> [--out clip.flac]")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	clip, err := svc.Preview(ctx, rest[0])
	if err != nil {
		fmt.Printf("❌ Failed to cut preview: %v\n", err)
		os.Exit(1)
	}

	dest := clip.Path
	if *out != "" {
		if err := os.Rename(clip.Path, *out); err != nil {
			clip.Close()
			fmt.Printf("❌ Failed to move preview to %s: %v\n", *out, err)
			os.Exit(1)
		}
		dest = *out
	}

	fmt.Printf("✂️  %.1fs preview from %s of %s\n", clip.DurationSeconds, formatSeconds(clip.StartSeconds), filepath.Base(rest[0]))
	fmt.Printf("   %s\n", dest)
}

func handleRank(ctx context.Context, args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("rank", flag.ExitOnError)
	artist := cmd.String("artist", "", "Reference artist")
	title := cmd.String("title", "", "Reference title")
	album := cmd.String("album", "", "Reference album")
	duration := cmd.Int("duration", 0, "Reference duration in seconds")
	year := cmd.String("year", "", "Reference release year")
	refFile := cmd.String("reference", "", "Take the reference from a local file's tags and length")
	relaxed := cmd.Int("relaxed", 0, "Accept hits up to this many seconds off the reference with no duration points")
	allFormats := cmd.Bool("all-formats", false, "Fall back to non-FLAC hits when no FLAC hit survives")
	catalog := cmd.Bool("catalog", false, "Responses come from an artist-only search; keep files naming the title's Latin keywords")
	top := cmd.Int("top", 10, "How many results to print")
	asJSON := cmd.Bool("json", false, "Print the ranking as JSON")
	rest := parseSubcommand(cmd, args)

	if len(rest) != 1 {
		fmt.Println("Usage: truelossless rank <responses.json> (--reference <file> | --artist <a> --title <t> --duration <secs>)")
		os.Exit(1)
	}

	raw, err := os.ReadFile(rest[0])
	if err != nil {
		fmt.Printf("❌ Failed to read search responses: %v\n", err)
		os.Exit(1)
	}
	hits, err := ranking.ParseResponses(raw, false)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	ref := ranking.ReferenceTrack{Artist: *artist, Title: *title, Album: *album, DurationSecs: *duration, Year: *year}
	if *refFile != "" {
		fromFile, err := ranking.ReferenceFromFile(ctx, *refFile)
		if err != nil {
			fmt.Printf("❌ Failed to read reference file: %v\n", err)
			os.Exit(1)
		}
		// explicit flags win over tags
		if ref.Artist == "" {
			ref.Artist = fromFile.Artist
		}
		if ref.Title == "" {
			ref.Title = fromFile.Title
		}
		if ref.Album == "" {
			ref.Album = fromFile.Album
		}
		if ref.DurationSecs == 0 {
			ref.DurationSecs = fromFile.DurationSecs
		}
		if ref.Year == "" {
			ref.Year = fromFile.Year
		}
	}
	if ref.Title == "" {
		fmt.Println("Error: a reference title is required (--title or --reference)")
		os.Exit(1)
	}

	var relaxedLimit *int
	if *relaxed > 0 {
		relaxedLimit = relaxed
	}

	svc := mustCreateService()
	defer svc.Close()

	res, err := svc.Rank(ctx, hits, ref, ranking.RankOptions{
		RelaxedLimit:  relaxedLimit,
		AllFormats:    *allFormats,
		ArtistCatalog: *catalog,
	})
	if err != nil {
		fmt.Printf("❌ Ranking failed: %v\n", err)
		os.Exit(1)
	}
	if res.Fallback {
		log.Infof("No FLAC hit survived, ranked %d other audio hits", len(res.Hits))
	}
	printRanking(res, ref, *top, *asJSON)
}

func printRanking(res *truelossless.RankResult, ref ranking.ReferenceTrack, top int, asJSON bool) {
	if asJSON {
		printJSON(res)
		return
	}

	ranked := res.Hits
	fmt.Printf("\n🎯 %s - %s (%s)\n", ref.Artist, ref.Title, ref.DurationDisplay())
	if len(ranked) == 0 {
		fmt.Println("\n📭 No acceptable results")
		for i, q := range res.Suggestions {
			if i == 0 {
				fmt.Printf("   Try: %s\n", q)
			} else {
				fmt.Printf("        %s\n", q)
			}
		}
		return
	}
	if res.Fallback {
		fmt.Println("\n⚠️  No FLAC hit survived, showing other formats")
	}

	fmt.Printf("\n✅ %d candidate(s):\n\n", len(ranked))
	n := min(top, len(ranked))
	for i, hit := range ranked[:n] {
		fmt.Printf("%d. [%.2f] %s\n", i+1, hit.Score, hit)
		fmt.Printf("   from %s | slot: %v | queue: %d | %s/s\n", hit.Username, hit.HasFreeSlot, hit.QueueLength, humanize.Bytes(uint64(max(hit.UploadSpeed, 0))))
	}
	if len(ranked) > n {
		fmt.Printf("\n... and %d more\n", len(ranked)-n)
	}
}

func handleScan(ctx context.Context, args []string) {
	log := logger.GetLogger()

	cmd := flag.NewFlagSet("scan", flag.ExitOnError)
	workers := cmd.Int("workers", env.ScanWorkers, "Concurrent analyses (env: SCAN_WORKERS)")
	onlyBad := cmd.Bool("only-bad", false, "List only files that are not AUTHENTIC")
	roots := parseSubcommand(cmd, args)

	if len(roots) == 0 {
		fmt.Println("Usage: truelossless scan <dir_or_file>... [--workers N] [--only-bad]")
		os.Exit(1)
	}

	var paths []string
	for _, root := range roots {
		found, err := utils.FindAudioFiles(root, utils.LosslessExtensions)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		fmt.Println("📭 No lossless files found")
		return
	}

	// keep log lines from tearing the bar
	if env.Level() < logger.WARN {
		log.SetLevel(logger.WARN)
	}

	svc := mustCreateService()
	defer svc.Close()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("🔍 Scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	start := time.Now()
	results, err := svc.VerifyBatch(ctx, paths, *workers, func(truelossless.BatchResult) {
		bar.Add(1)
	})
	bar.Finish()
	if err != nil {
		fmt.Printf("⚠️  Scan interrupted: %v\n", err)
	}

	counts := make(map[spectral.Classification]int)
	failed := 0
	for _, res := range results {
		switch {
		case res.Report == nil && res.Err == nil:
			continue // never started
		case res.Err != nil:
			failed++
			fmt.Printf("❓ %s: %v\n", res.Path, res.Err)
		default:
			v := res.Report.Verdict
			counts[v.Classification]++
			if !*onlyBad || v.Classification != spectral.Authentic {
				fmt.Printf("%s %s (%.1fkHz)\n", v.Classification.Emoji(), res.Path, v.CutoffKHz)
			}
		}
	}

	fmt.Printf("\n📊 %d files in %s\n", len(paths), time.Since(start).Round(time.Millisecond))
	for _, c := range []spectral.Classification{spectral.Authentic, spectral.Warning, spectral.Suspicious, spectral.Fake} {
		fmt.Printf("   %s %-18s %d\n", c.Emoji(), c.Label(), counts[c])
	}
	if failed > 0 {
		fmt.Printf("   ❓ %-18s %d\n", "Undecodable", failed)
	}
}

func handleHistory(args []string) {
	cmd := flag.NewFlagSet("history", flag.ExitOnError)
	limit := cmd.Int("limit", 20, "How many entries of each kind to show")
	asJSON := cmd.Bool("json", false, "Print history as JSON")
	parseSubcommand(cmd, args)

	if noHistory {
		fmt.Println("Error: history is disabled by --no-history")
		os.Exit(1)
	}

	svc := mustCreateService()
	defer svc.Close()

	h, err := svc.History(*limit)
	if err != nil {
		fmt.Printf("❌ Failed to read history: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		printJSON(h)
		return
	}

	if len(h.Analyses) == 0 && len(h.Picks) == 0 {
		fmt.Println("\n📭 No history yet")
		return
	}

	if len(h.Analyses) > 0 {
		fmt.Printf("\n📚 Recent analyses:\n\n")
		for _, a := range h.Analyses {
			fmt.Printf("%s %s\n", a.Classification.Emoji(), a.Path)
			fmt.Printf("   cutoff %.2fkHz of %.2fkHz | %dbit/%.1fkHz | %s\n",
				a.CutoffKHz, a.NyquistKHz, a.BitDepth, float64(a.SampleRate)/1000, humanize.Time(a.CreatedAt))
		}
		fmt.Println()
		for _, c := range []spectral.Classification{spectral.Authentic, spectral.Warning, spectral.Suspicious, spectral.Fake} {
			fmt.Printf("   %s %-18s %d\n", c.Emoji(), c.Label(), h.Counts[c])
		}
	}

	if len(h.Picks) > 0 {
		fmt.Printf("\n🎯 Recent picks:\n\n")
		for _, p := range h.Picks {
			fmt.Printf("[%.2f] %s - %s\n", p.Score, p.Artist, p.Title)
			fmt.Printf("   %s from %s (%d candidates) | %s\n", p.Filename, p.Username, p.Candidates, humanize.Time(p.CreatedAt))
		}
	}
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func printUsage() {
	fmt.Println("TrueLossless - spectral lossless verification and search-result ranking")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --env <file>       Dotenv file with settings (default: .env, ignored if missing)")
	fmt.Println("  --db <path>        SQLite history database (env: TRUELOSSLESS_DB_PATH, default: truelossless.sqlite3)")
	fmt.Println("  --temp <dir>       Temporary directory (env: TRUELOSSLESS_TEMP_DIR)")
	fmt.Println("  --no-history       Do not record verdicts or picks")
	fmt.Println("\nUsage:")
	fmt.Println("  truelossless [global-options] analyze <audio_file>... [--json] [--spectrogram out.png]")
	fmt.Println("  truelossless [global-options] preview <audio_file> [--out clip.flac]")
	fmt.Println("  truelossless [global-options] rank <responses.json> --artist <a> --title <t> --duration <secs> [--relaxed <secs>] [--all-formats]")
	fmt.Println("  truelossless [global-options] rank <responses.json> --reference <local_file>")
	fmt.Println("  truelossless [global-options] scan <dir>... [--workers N] [--only-bad]")
	fmt.Println("  truelossless [global-options] history [--limit N] [--json]")
	fmt.Println("\nSettings (environment or .env):")
	fmt.Println("  DURATION_TOLERANCE_SECS, EXCLUDE_KEYWORDS, LOG_LEVEL, ANALYSIS_WINDOW_SECS,")
	fmt.Println("  PREVIEW_DURATION_SECS, SCAN_WORKERS, HTTP_PORT")
	fmt.Println("\nExamples:")
	fmt.Println("  truelossless analyze \"01 - Around the World.flac\" --spectrogram atw.png")
	fmt.Println("  truelossless scan ~/Music --only-bad --workers 8")
	fmt.Println("  truelossless rank search.json --artist \"Daft Punk\" --title \"Around the World\" --duration 429")
}

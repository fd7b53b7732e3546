package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/TrueLossless/internal/config"
	"github.com/himanishpuri/TrueLossless/pkg/logger"
	"github.com/himanishpuri/TrueLossless/pkg/truelossless"
)

var (
	envFile        string
	port           string
	dbPath         string
	tempDir        string
	noHistory      bool
	allowedOrigins string
)

func init() {
	flag.StringVar(&envFile, "env", ".env", "Optional dotenv file with settings")
	flag.StringVar(&port, "port", "", "HTTP server port (env: HTTP_PORT, default 8080)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite history database (env: TRUELOSSLESS_DB_PATH)")
	flag.StringVar(&tempDir, "temp", "", "Temporary directory for uploads (env: TRUELOSSLESS_TEMP_DIR)")
	flag.BoolVar(&noHistory, "no-history", false, "Do not record verdicts or picks")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	env, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.SetLevel(env.Level())

	if port == "" {
		port = env.HTTPPort
	}
	if dbPath == "" {
		dbPath = env.DBPath
	}
	if tempDir == "" {
		tempDir = env.TempDir
	}

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		for _, o := range strings.Split(allowedOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	ranker, err := env.Ranker(log.WithPrefix("[rank]"))
	if err != nil {
		log.Fatalf("Invalid ranking settings: %v", err)
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

	service, err := truelossless.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		HistoryEnabled: !noHistory,
		AllowedOrigins: origins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}

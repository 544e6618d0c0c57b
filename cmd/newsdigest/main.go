package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/deusflow/newsdigest/internal/app"
	"github.com/deusflow/newsdigest/internal/config"
	"github.com/deusflow/newsdigest/internal/logger"
	"github.com/deusflow/newsdigest/internal/metrics"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	sourcesPath := flag.String("sources", "", "path to the sources YAML file (overrides SOURCES_CONFIG_PATH)")
	maxArticles := flag.Int("max-articles", 0, "maximum articles in the digest (overrides NEWS_MAX_ARTICLES)")
	intelligent := flag.Bool("intelligent", false, "force intelligent selection on, overriding USE_INTELLIGENT_SELECTION")
	directOnly := flag.Bool("direct-only", false, "skip intelligent selection and take articles directly from sources")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if *sourcesPath != "" {
		cfg.SourcesConfigPath = *sourcesPath
	}
	if *maxArticles > 0 {
		cfg.Preferences.MaxArticles = *maxArticles
	}
	if *intelligent {
		cfg.UseIntelligentSelection = true
	}
	if *directOnly {
		cfg.UseIntelligentSelection = false
	}
	logger.Init(cfg.Debug || *debug)

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	a, err := app.New(cfg)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("Digest run failed", "error", err)
		os.Exit(1)
	}
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("Starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("Monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}

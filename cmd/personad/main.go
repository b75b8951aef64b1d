package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/personaforge/personad/internal/api"
	"github.com/personaforge/personad/internal/common"
	"github.com/personaforge/personad/internal/llm"
	"github.com/personaforge/personad/internal/store"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("personad: .env file not loaded", "error", err)
	} else {
		logger.Info("personad: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite database")
	flag.Parse()

	logger.Info("personad: startup initiated", "addr", *addr, "db", *dbPath)

	storeCfg := store.LoadConfig()
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		storeCfg.Path = trimmed
	}

	st, err := store.OpenWithConfig(storeCfg)
	if err != nil {
		logger.Error("personad: store initialization failed", "error", err)
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer st.Close()

	provider := llm.NewProvider()
	logger.Info("personad: llm provider ready", "provider", provider.Name(), "model", provider.Model())

	server := api.NewServer(st, provider)

	logger.Info("personad: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("personad: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("personad: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultDBPath() string {
	return filepath.Join("data", "personad.db")
}

// Command llmgatewayd runs the LLM proxy's HTTP server: load the TOML
// configuration, build the App, and serve on host:port.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/llmgateway/llmgateway/internal/config"
	"github.com/llmgateway/llmgateway/internal/server"
)

func main() {
	configPath := os.Getenv("LLMGATEWAY_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	log := logrus.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config %q: %v", configPath, err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	app := server.NewApp(cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.WithFields(logrus.Fields{
		"addr":     addr,
		"backends": app.Catalog.Len(),
	}).Info("llmgateway starting")

	if err := http.ListenAndServe(addr, app.NewRouter()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

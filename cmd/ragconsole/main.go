package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragconsole/internal/config"
	"ragconsole/internal/filter"
	"ragconsole/internal/gateway"
	"ragconsole/internal/logger"
	"ragconsole/internal/service"
	"ragconsole/internal/session"
	"ragconsole/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragconsole/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()
	lg.Info("starting", zap.String("config", cfgPath), zap.String("api", cfg.API.BaseURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Assemble components
	client := gateway.NewClient(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: time.Duration(cfg.API.TimeoutSecs) * time.Second,
		Logger:  lg,
	})
	sess := session.NewStore(client, lg)
	filters := filter.NewState()
	orch := service.NewOrchestrator(client, sess, filters, lg)

	m := tui.New(orch, filters, tui.Options{
		DarkMode:  cfg.UI.DarkMode,
		ExportDir: cfg.UI.ExportDir,
		Context:   ctx,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	// Send blocks until the event loop receives, and state can change from inside Update.
	orch.OnChange(func() { go p.Send(tui.StateChangedMsg{}) })

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		lg.Error("tui exited", zap.Error(err))
		log.Fatal(err)
	}
	lg.Info("stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"home-app/internal/broker"
	"home-app/internal/persistence"
	"home-app/internal/router"
	"home-app/internal/service"
	"home-app/internal/storage"
	"home-app/internal/ui"
	"home-app/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// brokerKey is the persistence key of the broker settings of the last run.
const brokerKey = "broker"

const stopTimeout = 5 * time.Second

type Config struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`
	State struct {
		Backend          string        `yaml:"backend"` // "json" or "bolt"
		Path             string        `yaml:"path"`
		AutosaveInterval time.Duration `yaml:"autosave_interval"`
	} `yaml:"state"`
	Broker struct {
		Autostart bool              `yaml:"autostart"`
		Endpoints []broker.Endpoint `yaml:"endpoints"`
	} `yaml:"broker"`
	MQTT struct {
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Web struct {
		Listen         string   `yaml:"listen"` // empty disables the status API
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	PanelsDir string `yaml:"panels_dir"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

func (c *Config) validate() error {
	if c.App.Name == "" || strings.ContainsAny(c.App.Name, `/\`) {
		return fmt.Errorf("app.name must be a plain file name, got %q", c.App.Name)
	}
	switch c.State.Backend {
	case "json", "bolt":
	default:
		return fmt.Errorf("state.backend must be json or bolt, got %q", c.State.Backend)
	}
	if c.State.AutosaveInterval <= 0 {
		return fmt.Errorf("state.autosave_interval must be positive")
	}
	if err := (broker.Config{Endpoints: c.Broker.Endpoints}).Validate(); err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	return nil
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "home-app.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logOut, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		bootLogger.Error("open log file", "err", err)
		os.Exit(1)
	}
	defer logOut.Close()

	logger := newLogger(cfg, logOut)
	slog.SetDefault(logger)
	logger.Info("home-app starting", "version", version)

	persist, err := openPersistence(cfg, logger)
	if err != nil {
		logger.Error("open state store", "err", err)
		os.Exit(1)
	}

	// Endpoints from the config file win; without any, the settings of the
	// previous run are used.
	brokerCfg := broker.Config{Endpoints: cfg.Broker.Endpoints}
	if saved, ok := persistence.GetValue[broker.Config](persist, brokerKey); ok && brokerCfg.Empty() {
		if err := saved.Validate(); err != nil {
			logger.Warn("ignore saved broker settings", "err", err)
		} else {
			brokerCfg = saved
			logger.Info("using saved broker settings", "endpoints", len(saved.Endpoints))
		}
	}

	supervisor := service.NewSupervisor("broker", brokerCfg, func(c broker.Config) service.Runner {
		return broker.New(c, logger)
	}, logger)
	if cfg.Broker.Autostart {
		if err := supervisor.Start(); err != nil && !errors.Is(err, service.ErrNoConfig) {
			logger.Error("start broker", "err", err)
		}
	}

	// Start the device monitor (no-op when built with no_mqtt tag).
	devices, monitor := initMonitor(cfg, logger)

	// Start the status API when configured.
	var webServer *web.Server
	var httpServer *http.Server
	if cfg.Web.Listen != "" {
		webOpts := []web.ServerOption{web.WithVersion(version)}
		if cfg.Web.APIKey != "" {
			webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
		}
		if len(cfg.Web.AllowedOrigins) > 0 {
			webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
		}
		webServer = web.NewServer(cfg.App.Name, devices, supervisor, logger, webOpts...)
		httpServer = &http.Server{
			Addr:         cfg.Web.Listen,
			Handler:      webServer,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			logger.Info("web server starting", "addr", cfg.Web.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server", "err", err)
			}
		}()
	}

	var panels *ui.PanelManager
	if cfg.PanelsDir != "" {
		panels, err = ui.NewPanelManager(cfg.PanelsDir, logger)
		if err != nil {
			logger.Warn("panels disabled", "err", err)
		}
	}

	env := &ui.Env{
		AppName: cfg.App.Name,
		Devices: devices,
		Service: supervisor,
		Health:  persist.Health,
		Panels:  panels,
		Logger:  logger,
	}

	r := router.New(logger)
	r.Add(router.NewPage(ui.NewDevicesUnit(env)))

	model := ui.NewModel(r, persist, ui.LoadUIState(persist), ui.DefaultTickInterval)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("ui", "err", err)
	}

	logger.Info("shutting down")
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), stopTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", "err", err)
		}
		shutdownCancel()
		webServer.Stop()
	}
	if err := supervisor.StopWait(stopTimeout); err != nil {
		logger.Error("stop broker", "err", err)
	}
	monitor.Stop()

	persist.SetValue(brokerKey, supervisor.Config())
	persist.Save()
	if h := persist.Health(); !h.OK() {
		logger.Error("final save failed", "err", h.LastErr)
	}
	if err := persist.Close(); err != nil {
		logger.Error("close state store", "err", err)
	}

	logger.Info("goodbye")
}

// openPersistence opens the configured backend. A bolt database that cannot
// be opened falls back to the JSON file beside it; without state.path the
// JSON file lives beside the executable.
func openPersistence(cfg *Config, logger *slog.Logger) (*persistence.Persistence, error) {
	var p *persistence.Persistence
	switch {
	case cfg.State.Backend == "bolt":
		path := cfg.State.Path
		if path == "" {
			def, err := storage.DefaultPath(cfg.App.Name)
			if err != nil {
				return nil, err
			}
			path = def
		}
		dbPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		s, err := storage.NewBoltStore(dbPath, logger)
		if err == nil {
			logger.Info("state store", "backend", "bolt", "path", dbPath)
			p = persistence.New(s, persistence.WithLogger(logger))
			break
		}
		logger.Warn("bolt store unavailable, using json", "path", dbPath, "err", err)
		p = openFileState(path, logger)
	case cfg.State.Path == "":
		def, err := persistence.NewDefault(cfg.App.Name, logger)
		if err != nil {
			return nil, err
		}
		p = def
	default:
		p = openFileState(cfg.State.Path, logger)
	}
	p.SetAutoSaveInterval(cfg.State.AutosaveInterval)
	return p, nil
}

func openFileState(path string, logger *slog.Logger) *persistence.Persistence {
	store := storage.NewFileStore(path, logger)
	logger.Info("state store", "backend", "json", "path", store.Path())
	return persistence.New(store, persistence.WithLogger(logger))
}

func loadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Run with defaults.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.App.Name == "" {
		cfg.App.Name = "home-app"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = "json"
	}
	if cfg.State.AutosaveInterval == 0 {
		cfg.State.AutosaveInterval = persistence.AppInterval
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://127.0.0.1:1883"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "home"
	}
	if cfg.PanelsDir == "" {
		cfg.PanelsDir = "panels"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "home-app.log"
	}
	return &cfg, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

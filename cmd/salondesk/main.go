package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"salondesk/internal/config"
	appLog "salondesk/internal/log"
	"salondesk/internal/refresh"
	"salondesk/internal/salonapi"
	"salondesk/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envPath    string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()

	if err := config.LoadDotEnv(flags.envPath); err != nil {
		appLog.Error("failed to load env file", err, "env_path", flags.envPath)
		os.Exit(1)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("salondesk starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"api", conf.APIBaseURL,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"closures", len(conf.Closures),
		"display", conf.Display.Enabled,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := salonapi.New(conf.APIBaseURL)

	if flags.once {
		os.Exit(runOnce(ctx, conf, api))
	}

	if conf.Display.Enabled {
		job, err := refresh.New(conf, api)
		if err != nil {
			appLog.Error("failed to set up display refresh", err)
			os.Exit(1)
		}
		if err := job.Start(ctx); err != nil {
			appLog.Error("failed to schedule display refresh", err)
			os.Exit(1)
		}
	}

	if err := web.StartServer(ctx, conf, api, flags.debug); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}
	appLog.Info("salondesk exiting")
}

// runOnce performs a single display refresh and returns the exit code.
func runOnce(ctx context.Context, conf *config.Config, api *salonapi.Client) int {
	if conf.Display.Username == "" || conf.Display.Password == "" {
		appLog.Warn("-once needs display.username and display.password")
		return 2
	}
	job, err := refresh.New(conf, api)
	if err != nil {
		appLog.Error("failed to set up display refresh", err)
		return 1
	}
	if err := job.RunOnce(ctx); err != nil {
		appLog.Error("display refresh failed", err)
		return 1
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/salondesk/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Optional .env file loaded before the config")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one display refresh cycle and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

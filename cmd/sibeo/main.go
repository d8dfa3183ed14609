package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/auth"
	"sibeo/internal/common"
	"sibeo/internal/config"
	"sibeo/internal/demo"
	"sibeo/internal/logging"
	"sibeo/internal/services/courses"
	"sibeo/internal/services/dashboard"
	"sibeo/internal/services/manage"
	"sibeo/internal/session"
)

// app holds the collaborators shared by every command
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *session.Store
	api       *client.Client
	session   *auth.Manager
	forms     *auth.FormValidator
	courses   *courses.Service
	dashboard *dashboard.Service
	manage    *manage.Service
}

var (
	sibeo *app

	apiURLFlag   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:           "sibeo",
	Short:         "SIBEO course platform client",
	Long:          `A command-line client and local web front end for the SIBEO online course platform.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		sibeo = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if sibeo != nil {
			_ = sibeo.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "API base URL (overrides SIBEO_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
}

// newApp loads configuration and wires the client, session and services
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.API.BaseURL = apiURLFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := session.Open(ctx, cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	jar, err := session.NewPersistentJar(ctx, cfg.API.BaseURL, store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	clientCfg := client.DefaultClientConfig()
	clientCfg.BaseURL = cfg.API.BaseURL
	clientCfg.Timeout = cfg.APITimeout()
	clientCfg.Jar = jar
	api := client.NewClient(clientCfg, logger)

	mgr := auth.NewManager(api, store, logger).WithCookies(jar)
	if err := mgr.Restore(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		api:       api,
		session:   mgr,
		forms:     auth.NewFormValidator(cfg.Auth),
		courses:   courses.NewService(api, demo.Default(), logger),
		dashboard: dashboard.NewService(api, logger),
		manage:    manage.NewService(api, logger),
	}, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", common.UserMessage(err, err.Error()))
		os.Exit(1)
	}
}

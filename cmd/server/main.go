package main

import (
	"fmt"
	"os"

	"github.com/web3ld/contact-api/internal/api"
	"github.com/web3ld/contact-api/internal/config"
	"github.com/web3ld/contact-api/internal/logging"
	"github.com/web3ld/contact-api/internal/ratelimit"
	"github.com/web3ld/contact-api/internal/service"
	"github.com/web3ld/contact-api/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "contact-api",
	Short: "Contact form submission API for web3ld.org",
	Long: `contact-api serves the contact-form endpoint of the web3ld.org site:
Turnstile human verification, durable per-IP rate limiting and
transactional email dispatch via Brevo.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "contact-api: %v\n", err)
			os.Exit(1)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func run() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Configure(&logging.Config{
		File:       cfg.Log.File,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	})
	logger := logging.GetLogger()
	defer logger.Close()

	logger.Info("starting server in %s mode", cfg.Env)

	if missing := cfg.MissingKeys(); len(missing) > 0 {
		// Not fatal: requests answer with a config error (or dev-mode
		// success) until the deploy is fixed.
		logger.Warn("missing configuration: %v", missing)
	}

	limiter, err := ratelimit.New(cfg.RateLimit, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("rate limiter: backend=%s quota=%d window=%s",
		cfg.RateLimit.Backend, cfg.RateLimit.Quota, cfg.RateLimit.Window)

	verifier := service.NewTurnstileService(cfg.TurnstileSecretKey)
	dispatcher := service.NewEmailService(cfg.BrevoAPIKey, cfg.SenderEmail, cfg.ReceiverEmail)

	srv := api.NewServer(cfg, verifier, dispatcher, limiter)
	return srv.Start()
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

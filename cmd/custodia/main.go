package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/curavia/custodia/internal/config"
	"github.com/curavia/custodia/internal/custodia"
	"github.com/curavia/custodia/internal/http_api"
	"github.com/curavia/custodia/internal/kyc"
	"github.com/curavia/custodia/internal/notificator"
	"github.com/curavia/custodia/internal/payments"
	"github.com/curavia/custodia/internal/repository"
	"github.com/curavia/custodia/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "custodia",
		Usage: "Custodia is a custodial token ledger and escrow service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.IntFlag{Name: "api-port", Aliases: []string{"a"}, Usage: "API port"},
			&cli.StringFlag{Name: "payment-provider-url", Aliases: []string{"e"}, Usage: "Payment provider base URL"},
			&cli.StringFlag{Name: "kyc-service-url", Aliases: []string{"k"}, Usage: "KYC service base URL"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("payment-provider-url") {
		cfg.PaymentProviderURL = c.String("payment-provider-url")
	}
	if c.IsSet("kyc-service-url") {
		cfg.KYCServiceURL = c.String("kyc-service-url")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	// Initialize database
	db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Initialize external services
	paymentProvider := payments.NewClient(cfg.PaymentProviderURL, cfg.PaymentProviderKey, log)
	kycService := kyc.NewService(cfg.KYCServiceURL, cfg.KYCCacheTTL, log)

	// Initialize ops alerter; channels without credentials stay disabled
	var telNotif *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" && cfg.TelegramOpsChatID != "" {
		telNotif, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken, cfg.TelegramOpsChatID)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	var emailNotif *notificator.EmailNotificator
	if cfg.OpsEmail != "" {
		emailNotif = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender, cfg.OpsEmail)
	}
	alerter := notificator.NewNotificator(log, telNotif, emailNotif)

	// Create Custodia instance
	custodiaApp, err := custodia.NewCustodia(db, paymentProvider, kycService, alerter, log, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize custodia: %v", err)
	}

	apiServer := http_api.NewHTTPServer(custodiaApp, cfg.APIPort, cfg.AdminAPIKey, log)

	go apiServer.Start()
	// Start the application
	custodiaApp.Start()

	return nil
}

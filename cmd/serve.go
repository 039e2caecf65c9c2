package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/pdftext"
	"github.com/spigell/resume-matcher/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on. Default is :5000")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	scorer, err := newScorer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building a scorer", zap.Error(err))
	}

	extractor, err := pdftext.New(config.PDF.Backend)
	if err != nil {
		logger.Fatal("building a pdf extractor", zap.Error(err))
	}

	srv := server.New(server.Config{
		Listen:          config.Listen,
		MaxUploadSize:   config.MaxUploadSize,
		AllowedOrigins:  config.CORS.AllowedOrigins,
		RateLimit:       config.RateLimit.RequestsPerSecond,
		RateBurst:       config.RateLimit.Burst,
		ShutdownTimeout: config.ShutdownTimeout,
	}, server.Deps{
		Logger:    logger,
		Scorer:    scorer,
		Extractor: extractor,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "server stopped"))
}

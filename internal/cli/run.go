package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/adapter/chromedp_browser"
	"github.com/user/nextdoor-crawler/internal/adapter/terminal"
	"github.com/user/nextdoor-crawler/internal/delivery/http/handler"
	"github.com/user/nextdoor-crawler/internal/delivery/http/router"
	"github.com/user/nextdoor-crawler/internal/usecase"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

const secondFactorRecheckDelay = 3 * time.Second

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Logs in to Nextdoor and starts the interactive search loop.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}
}

func (a *app) run(cmd *cobra.Command) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.ValidateForCrawl(); err != nil {
		return err
	}
	ctx := cmd.Context()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing post store", zap.Error(err))
		}
	}()
	posts := usecase.NewPostGateway(store, logger, m)

	seen, err := openSeen(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = seen.close() }()

	oracle, err := newOracle(cfg)
	if err != nil {
		return err
	}

	prompter := terminal.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	pacer := usecase.RandomPacer{}

	factory := chromedp_browser.NewFactory(cfg.HeadlessMode, cfg.PageLoadTimeout(),
		chromedp_browser.NewAgentRotator(cfg.UserAgents()), logger)
	sessions := usecase.NewSessionController(factory, prompter, pacer, usecase.SessionConfig{
		BaseURL:         cfg.NextdoorBaseURL,
		Email:           cfg.NextdoorEmail,
		Password:        cfg.NextdoorPassword,
		CheckAttempts:   cfg.LoginCheckAttempts,
		CheckDelay:      cfg.LoginCheckDelay(),
		RecheckAttempts: 3,
		RecheckDelay:    secondFactorRecheckDelay,
	}, logger, m)

	classifier := usecase.NewClassifier(oracle, usecase.ClassifierConfig{
		BusinessName: cfg.BusinessName,
		Services:     cfg.ServiceList,
		Contact:      cfg.ContactInfo,
	}, logger, m)

	extractor, err := usecase.NewExtractor(usecase.ExtractorParams{
		Seen:          seen.provider,
		Posts:         posts,
		Classifier:    classifier,
		Approver:      prompter,
		Replier:       usecase.NewReplyPoster(pacer, usecase.DefaultScreenshotPath, logger),
		Pacer:         pacer,
		Logger:        logger,
		Metrics:       m,
		BaseURL:       cfg.NextdoorBaseURL,
		DetailTimeout: cfg.PageLoadTimeout(),
	})
	if err != nil {
		return err
	}

	bot := usecase.NewBot(prompter, sessions, usecase.NewNavigator(pacer, logger), extractor, pacer, usecase.BotConfig{
		DefaultMaxPosts:   cfg.DefaultMaxPosts,
		DefaultMaxRuntime: cfg.DefaultMaxRuntime(),
		RestartDelay:      cfg.RestartDelay(),
	}, logger)

	if cfg.HTTPAddr == "" {
		return bot.Run(ctx)
	}

	// The ops server lives exactly as long as the bot.
	opsCtx, stopOps := context.WithCancel(ctx)
	defer stopOps()
	h := handler.NewHandler(posts, seen.checks, logger)
	opsDone := make(chan error, 1)
	go func() {
		opsDone <- router.Serve(opsCtx, cfg.HTTPAddr, router.New(h, m, reg, logger), logger)
	}()

	err = bot.Run(ctx)
	stopOps()
	if opsErr := <-opsDone; opsErr != nil {
		logger.Error("ops server stopped", zap.Error(opsErr))
	}
	return err
}

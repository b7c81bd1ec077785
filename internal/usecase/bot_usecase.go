package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
)

type BotConfig struct {
	DefaultMaxPosts   int
	DefaultMaxRuntime time.Duration
	RestartDelay      time.Duration
}

// Bot is the interactive search loop: one session, many queries.
type Bot struct {
	console   repository.Console
	sessions  SessionController
	navigator Navigator
	extractor Extractor
	pacer     Pacer
	cfg       BotConfig
	logger    *zap.Logger
}

func NewBot(
	console repository.Console,
	sessions SessionController,
	navigator Navigator,
	extractor Extractor,
	pacer Pacer,
	cfg BotConfig,
	logger *zap.Logger,
) *Bot {
	if cfg.DefaultMaxPosts <= 0 {
		cfg.DefaultMaxPosts = 50
	}
	if cfg.DefaultMaxRuntime <= 0 {
		cfg.DefaultMaxRuntime = 1200 * time.Second
	}
	return &Bot{
		console:   console,
		sessions:  sessions,
		navigator: navigator,
		extractor: extractor,
		pacer:     pacer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run logs in and serves queries until the operator exits, input ends or ctx
// is cancelled. An aborted extraction, or a session found logged out before
// a search, restarts the browser session; failing to log in again ends the
// loop with an error.
func (b *Bot) Run(ctx context.Context) error {
	session, err := b.sessions.Login(ctx)
	if err != nil {
		return err
	}
	defer func() {
		b.logger.Info("closing browser session")
		if err := session.Close(); err != nil {
			b.logger.Warn("closing browser", zap.Error(err))
		}
	}()

	for {
		query, err := b.console.Ask(ctx, "\nEnter the search term for Nextdoor (or type 'exit' to quit): ")
		if err != nil {
			return b.inputDone(ctx, err)
		}
		query = strings.TrimSpace(query)
		if query == "" {
			b.logger.Warn("no search term entered, please try again")
			continue
		}

		if strings.EqualFold(query, "exit") {
			confirm, err := b.console.Ask(ctx, "Are you sure you want to exit? (yes/no): ")
			if err != nil {
				return b.inputDone(ctx, err)
			}
			if strings.ToLower(strings.TrimSpace(confirm)) == "yes" {
				b.logger.Info("exiting as requested")
				return nil
			}
			b.logger.Info("continuing")
			continue
		}

		maxPosts, err := b.askInt(ctx, fmt.Sprintf("Enter the maximum number of posts to extract (default %d): ", b.cfg.DefaultMaxPosts), b.cfg.DefaultMaxPosts)
		if err != nil {
			return b.inputDone(ctx, err)
		}
		defaultSeconds := int(b.cfg.DefaultMaxRuntime / time.Second)
		maxSeconds, err := b.askInt(ctx, fmt.Sprintf("Enter the maximum runtime in seconds (default %d): ", defaultSeconds), defaultSeconds)
		if err != nil {
			return b.inputDone(ctx, err)
		}

		if !b.sessions.VerifyLogin(ctx, session) {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("session is logged out, restarting bot")
			if session, err = b.restart(ctx, session); err != nil || session == nil {
				return err
			}
		}

		res := b.navigator.Search(ctx, session, query)
		if !res.OK() {
			b.logger.Warn("search failed or no results found, try again",
				zap.Bool("submitted", res.Submitted), zap.Bool("filtered", res.Filtered))
			continue
		}

		outcome, stats := b.extractor.Extract(ctx, session, maxPosts, time.Duration(maxSeconds)*time.Second)
		if ctx.Err() != nil {
			return nil
		}
		if outcome == entity.CrawlAborted {
			b.logger.Error("an error occurred, restarting bot")
			if session, err = b.restart(ctx, session); err != nil || session == nil {
				return err
			}
			continue
		}
		b.logger.Info("post extraction complete",
			zap.String("query", query),
			zap.Int("saved", stats.Processed),
			zap.Int("replies", stats.RepliesPosted),
			zap.String("stop_reason", stats.StopReason))
	}
}

// restart replaces session with a fresh login. A nil session and nil error
// mean ctx ended while waiting.
func (b *Bot) restart(ctx context.Context, session *Session) (*Session, error) {
	if err := session.Close(); err != nil {
		b.logger.Warn("closing browser", zap.Error(err))
	}
	if err := b.pacer.Pause(ctx, b.cfg.RestartDelay, b.cfg.RestartDelay); err != nil {
		return nil, nil
	}
	fresh, err := b.sessions.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not re-initialize browser: %w", err)
	}
	return fresh, nil
}

// askInt reads a number, using def for empty or invalid input.
func (b *Bot) askInt(ctx context.Context, question string, def int) (int, error) {
	answer, err := b.console.Ask(ctx, question)
	if err != nil {
		return 0, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n <= 0 {
		b.logger.Warn("invalid number, using default", zap.String("input", answer), zap.Int("default", def))
		return def, nil
	}
	return n, nil
}

// inputDone ends the loop cleanly on interrupt or end of input.
func (b *Bot) inputDone(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, io.EOF) {
		b.logger.Info("input closed, stopping")
		return nil
	}
	return err
}

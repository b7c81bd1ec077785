package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/scrape"
)

const (
	DefaultScreenshotPath = "comment_error.png"
	commentFormTimeout    = 5 * time.Second
	commentFormInterval   = 500 * time.Millisecond
)

// ReplyPoster comments on the post currently open in the browser.
type ReplyPoster interface {
	Post(ctx context.Context, b repository.Browser, message string) error
}

type replyUseCase struct {
	pacer          Pacer
	screenshotPath string
	logger         *zap.Logger
}

func NewReplyPoster(pacer Pacer, screenshotPath string, logger *zap.Logger) ReplyPoster {
	if screenshotPath == "" {
		screenshotPath = DefaultScreenshotPath
	}
	return &replyUseCase{pacer: pacer, screenshotPath: screenshotPath, logger: logger}
}

// Post types message into the comment form and submits it. On failure a
// screenshot of the page is saved for troubleshooting.
func (uc *replyUseCase) Post(ctx context.Context, b repository.Browser, message string) error {
	if err := uc.post(ctx, b, message); err != nil {
		if ctx.Err() == nil {
			if serr := b.Screenshot(ctx, uc.screenshotPath); serr != nil {
				uc.logger.Warn("could not save screenshot", zap.Error(serr))
			} else {
				uc.logger.Info("saved screenshot", zap.String("path", uc.screenshotPath))
			}
		}
		return fmt.Errorf("post comment: %w", err)
	}
	return nil
}

func (uc *replyUseCase) post(ctx context.Context, b repository.Browser, message string) error {
	if err := b.ScrollToBottom(ctx); err != nil {
		return err
	}
	if err := uc.pacer.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}

	if err := uc.waitForForm(ctx, b); err != nil {
		return err
	}
	if err := b.ClickJS(ctx, scrape.CommentForm); err != nil {
		return err
	}
	if err := uc.pacer.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return err
	}

	if err := b.Click(ctx, scrape.CommentInput); err != nil {
		return fmt.Errorf("activate comment box: %w", err)
	}
	if err := uc.pacer.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return err
	}

	uc.logger.Debug("typing comment", zap.Int("length", len(message)))
	for _, r := range message {
		if err := b.SendKeys(ctx, scrape.CommentInput, string(r)); err != nil {
			return fmt.Errorf("type comment: %w", err)
		}
		if err := uc.pacer.Pause(ctx, 50*time.Millisecond, 150*time.Millisecond); err != nil {
			return err
		}
	}

	if err := uc.enableSubmit(ctx, b); err != nil {
		return err
	}

	if err := b.Click(ctx, scrape.CommentSubmit); err != nil {
		return fmt.Errorf("submit comment: %w", err)
	}
	return uc.pacer.Pause(ctx, 3*time.Second, 5*time.Second)
}

// waitForForm polls for the comment form, which renders lazily below the post.
func (uc *replyUseCase) waitForForm(ctx context.Context, b repository.Browser) error {
	attempts := int(commentFormTimeout / commentFormInterval)
	for i := 0; i < attempts; i++ {
		found, err := b.Exists(ctx, scrape.CommentForm)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		if err := uc.pacer.Pause(ctx, commentFormInterval, commentFormInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: comment form", repository.ErrElementNotFound)
}

// enableSubmit fires the input event the submit button listens for, once more
// if the button still reports itself disabled.
func (uc *replyUseCase) enableSubmit(ctx context.Context, b repository.Browser) error {
	if err := b.DispatchInput(ctx, scrape.CommentInput); err != nil {
		return err
	}
	if err := uc.pacer.Pause(ctx, time.Second, 2*time.Second); err != nil {
		return err
	}

	disabled, ok, err := b.Attribute(ctx, scrape.CommentSubmit, "aria-disabled")
	if err != nil {
		return err
	}
	if ok && disabled == "true" {
		uc.logger.Warn("submit button is still disabled, firing another input event")
		if err := b.DispatchInput(ctx, scrape.CommentInput); err != nil {
			return err
		}
		return uc.pacer.Pause(ctx, time.Second, 2*time.Second)
	}
	return nil
}

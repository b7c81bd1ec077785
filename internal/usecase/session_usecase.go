package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/internal/scrape"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

var ErrLoginFailed = errors.New("login failed")

type SessionState int

const (
	StateUninitialized SessionState = iota
	StateBrowserReady
	StateCredentialsSubmitted
	StateAwaitingSecondFactor
	StateAuthenticated
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBrowserReady:
		return "browser_ready"
	case StateCredentialsSubmitted:
		return "credentials_submitted"
	case StateAwaitingSecondFactor:
		return "awaiting_second_factor"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "failed"
	}
}

// Session is an authenticated browser.
type Session struct {
	Browser repository.Browser
	State   SessionState
}

func (s *Session) Close() error {
	if s == nil || s.Browser == nil {
		return nil
	}
	return s.Browser.Close()
}

type SessionConfig struct {
	BaseURL  string
	Email    string
	Password string
	// CheckAttempts and CheckDelay bound the first login check.
	CheckAttempts int
	CheckDelay    time.Duration
	// RecheckAttempts and RecheckDelay apply after a confirmed second factor.
	RecheckAttempts int
	RecheckDelay    time.Duration
}

// SessionController logs in and checks login state.
type SessionController interface {
	Login(ctx context.Context) (*Session, error)
	CheckLoginSuccess(ctx context.Context, b repository.Browser, attempts int, delay time.Duration) bool
	VerifyLogin(ctx context.Context, s *Session) bool
}

type sessionUseCase struct {
	factory repository.BrowserFactory
	second  repository.SecondFactorPrompter
	pacer   Pacer
	cfg     SessionConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSessionController(
	factory repository.BrowserFactory,
	second repository.SecondFactorPrompter,
	pacer Pacer,
	cfg SessionConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) SessionController {
	if cfg.CheckAttempts <= 0 {
		cfg.CheckAttempts = 3
	}
	if cfg.RecheckAttempts <= 0 {
		cfg.RecheckAttempts = 3
	}
	return &sessionUseCase{factory: factory, second: second, pacer: pacer, cfg: cfg, logger: logger, metrics: m}
}

// Login runs the state machine from Uninitialized to Authenticated. On any
// failure the browser is closed and ErrLoginFailed is returned.
func (uc *sessionUseCase) Login(ctx context.Context) (*Session, error) {
	s := &Session{State: StateUninitialized}

	uc.logger.Info("initializing browser")
	b, err := uc.factory.Open(ctx)
	if err != nil {
		return nil, uc.failed(s, fmt.Errorf("%w: open browser: %v", ErrLoginFailed, err))
	}
	s.Browser = b
	s.State = StateBrowserReady

	if err := uc.submitCredentials(ctx, b); err != nil {
		return nil, uc.failed(s, fmt.Errorf("%w: %v", ErrLoginFailed, err))
	}
	s.State = StateCredentialsSubmitted

	if uc.CheckLoginSuccess(ctx, b, uc.cfg.CheckAttempts, uc.cfg.CheckDelay) {
		return uc.authenticated(s), nil
	}

	s.State = StateAwaitingSecondFactor
	uc.logger.Warn("search bar not found after login, waiting for second factor")
	for {
		decision, err := uc.second.AwaitSecondFactor(ctx)
		if err != nil {
			return nil, uc.failed(s, fmt.Errorf("%w: second factor: %v", ErrLoginFailed, err))
		}
		switch decision {
		case repository.SecondFactorConfirmed:
			if uc.CheckLoginSuccess(ctx, b, uc.cfg.RecheckAttempts, uc.cfg.RecheckDelay) {
				uc.logger.Info("login successful after second factor")
				return uc.authenticated(s), nil
			}
			if ctx.Err() != nil {
				return nil, uc.failed(s, fmt.Errorf("%w: %v", ErrLoginFailed, ctx.Err()))
			}
			uc.logger.Warn("still can't find search bar, second factor may not be done yet")
		case repository.SecondFactorDeclined:
			uc.logger.Info("second factor declined, complete authentication and restart")
			return nil, uc.failed(s, fmt.Errorf("%w: second factor declined", ErrLoginFailed))
		default:
			uc.logger.Warn("please type 'yes' or 'no'")
		}
	}
}

func (uc *sessionUseCase) submitCredentials(ctx context.Context, b repository.Browser) error {
	loginURL := strings.TrimRight(uc.cfg.BaseURL, "/") + "/login/"
	uc.logger.Info("attempting to log in", zap.String("url", loginURL))
	if err := b.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := uc.pacer.Pause(ctx, 3*time.Second, 3*time.Second); err != nil {
		return err
	}

	uc.logger.Info("entering email")
	if err := b.SendKeys(ctx, scrape.LoginEmail, uc.cfg.Email); err != nil {
		return fmt.Errorf("enter email: %w", err)
	}
	if err := uc.pacer.Pause(ctx, time.Second, 3*time.Second); err != nil {
		return err
	}

	uc.logger.Info("entering password")
	if err := b.SendKeys(ctx, scrape.LoginPassword, uc.cfg.Password); err != nil {
		return fmt.Errorf("enter password: %w", err)
	}
	if err := uc.pacer.Pause(ctx, time.Second, 3*time.Second); err != nil {
		return err
	}

	if err := b.PressEnter(ctx, scrape.LoginPassword); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	return uc.pacer.Pause(ctx, 3*time.Second, 5*time.Second)
}

// CheckLoginSuccess polls for the search field, which only renders for a
// logged-in user.
func (uc *sessionUseCase) CheckLoginSuccess(ctx context.Context, b repository.Browser, attempts int, delay time.Duration) bool {
	for attempt := 1; attempt <= attempts; attempt++ {
		found, err := b.Exists(ctx, scrape.SearchInput)
		switch {
		case err == nil && found:
			return true
		case errors.Is(err, repository.ErrSessionClosed), ctx.Err() != nil:
			return false
		case err != nil:
			uc.logger.Error("unexpected error checking login success", zap.Error(err))
		default:
			uc.logger.Warn("search bar not found",
				zap.Int("attempt", attempt), zap.Int("attempts", attempts), zap.Duration("delay", delay))
		}
		if err := uc.pacer.Pause(ctx, delay, delay); err != nil {
			return false
		}
	}
	return false
}

// VerifyLogin checks for the profile picture of the logged-in user.
func (uc *sessionUseCase) VerifyLogin(ctx context.Context, s *Session) bool {
	if s == nil || s.Browser == nil {
		return false
	}
	found, err := s.Browser.Exists(ctx, scrape.ProfilePicture)
	if err != nil || !found {
		uc.logger.Warn("login verification failed: not logged in", zap.Error(err))
		return false
	}
	uc.logger.Info("login verified")
	return true
}

func (uc *sessionUseCase) authenticated(s *Session) *Session {
	s.State = StateAuthenticated
	uc.metrics.Logins.WithLabelValues(s.State.String()).Inc()
	uc.logger.Info("login successful")
	return s
}

func (uc *sessionUseCase) failed(s *Session, err error) error {
	s.State = StateFailed
	uc.metrics.Logins.WithLabelValues(s.State.String()).Inc()
	uc.logger.Error("login failed", zap.Error(err))
	if cerr := s.Close(); cerr != nil {
		uc.logger.Warn("closing browser after failed login", zap.Error(cerr))
	}
	return err
}

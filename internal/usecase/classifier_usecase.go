package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/entity"
	"github.com/user/nextdoor-crawler/internal/repository"
	"github.com/user/nextdoor-crawler/pkg/metrics"
)

// ClassifierConfig describes the business the outreach is written for.
type ClassifierConfig struct {
	BusinessName string
	Services     []string
	Contact      string
}

// Classifier decides whether a post asks for one of the configured services
// and drafts a reply if it does. It never fails: any oracle error yields a
// negative draft.
type Classifier interface {
	Classify(ctx context.Context, content, author string) entity.Draft
}

type classifierUseCase struct {
	oracle  repository.Oracle
	cfg     ClassifierConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewClassifier(oracle repository.Oracle, cfg ClassifierConfig, logger *zap.Logger, m *metrics.Metrics) Classifier {
	return &classifierUseCase{oracle: oracle, cfg: cfg, logger: logger, metrics: m}
}

func (uc *classifierUseCase) Classify(ctx context.Context, content, author string) entity.Draft {
	if strings.TrimSpace(content) == "" {
		uc.metrics.Classifications.WithLabelValues("empty").Inc()
		return entity.Draft{}
	}

	answer, err := uc.ask(ctx, uc.classificationPrompt(),
		"Is this post a request for our services?\n\n"+content)
	if err != nil {
		return uc.fail(err)
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
		uc.metrics.Classifications.WithLabelValues("no").Inc()
		return entity.Draft{}
	}

	service, err := uc.ask(ctx,
		"You are a service extraction tool. Analyze the post and identify the type of service being requested. "+
			"Respond with only the type of service (e.g., 'lawn care', 'snow removal', 'landscaping').",
		"What type of service is being requested in this post?\n\n"+content)
	if err != nil {
		return uc.fail(err)
	}
	service = strings.TrimSpace(service)

	message, err := uc.ask(ctx,
		"You are a helpful assistant that generates polite and professional comments "+
			"offering services to users on Nextdoor. Include the user's first name and the type of service they are requesting. "+
			"Keep the message concise and friendly and do not sign off with anything like Warm Regards or leave my name at the end",
		fmt.Sprintf("Generate a comment offering your services to %s. They are requesting help with %s. "+
			"Include your contact information (%s).", author, service, uc.cfg.Contact))
	if err != nil {
		return uc.fail(err)
	}

	uc.metrics.Classifications.WithLabelValues("yes").Inc()
	uc.logger.Debug("service request classified", zap.String("service", service))
	return entity.Draft{IsServiceRequest: true, Message: strings.TrimSpace(message)}
}

func (uc *classifierUseCase) classificationPrompt() string {
	return fmt.Sprintf(
		"You are a classifier that determines if a post is requesting a service, make sure "+
			"that aligns with %s's service list (%s, etc.).\nAnswer only 'yes' or 'no'.",
		uc.cfg.BusinessName, strings.Join(uc.cfg.Services, ", "))
}

func (uc *classifierUseCase) ask(ctx context.Context, system, user string) (string, error) {
	return uc.oracle.Chat(ctx, []repository.Message{
		{Role: repository.RoleSystem, Content: system},
		{Role: repository.RoleUser, Content: user},
	})
}

func (uc *classifierUseCase) fail(err error) entity.Draft {
	if errors.Is(err, repository.ErrOracleRateLimited) {
		uc.metrics.Classifications.WithLabelValues("rate_limited").Inc()
		uc.logger.Warn("oracle rate limited, treating post as not a service request", zap.Error(err))
	} else {
		uc.metrics.Classifications.WithLabelValues("error").Inc()
		uc.logger.Error("error classifying post", zap.Error(err))
	}
	return entity.Draft{}
}

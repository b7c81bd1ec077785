package repository

import "context"

// Approver decides whether a drafted reply may be posted.
type Approver interface {
	Approve(ctx context.Context, message string) (bool, error)
}

type SecondFactorDecision int

const (
	SecondFactorUnknown SecondFactorDecision = iota
	SecondFactorConfirmed
	SecondFactorDeclined
)

// SecondFactorPrompter waits for a human to finish a second-factor challenge.
type SecondFactorPrompter interface {
	AwaitSecondFactor(ctx context.Context) (SecondFactorDecision, error)
}

// Console reads operator answers to free-text questions.
type Console interface {
	Ask(ctx context.Context, question string) (string, error)
}

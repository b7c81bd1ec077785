package chromedp_browser

import (
	"math/rand/v2"
	"sync"
)

// DefaultUserAgents is used when no rotation list is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
}

// AgentRotator hands out a random user agent per browser session.
type AgentRotator struct {
	mu         sync.Mutex
	userAgents []string
	last       string
}

func NewAgentRotator(userAgents []string) *AgentRotator {
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	return &AgentRotator{userAgents: append([]string(nil), userAgents...)}
}

// Next returns a random user agent.
func (a *AgentRotator) Next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = a.userAgents[rand.IntN(len(a.userAgents))]
	return a.last
}

// Last returns the agent handed out most recently.
func (a *AgentRotator) Last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Provider is the platform reachability source.
type Provider interface {
	Probe(ctx context.Context) (online bool, err error)
}

// Monitor tracks the last known connectivity state. Redundant provider
// reports are deduplicated: subscribers fire on transitions only.
type Monitor struct {
	logger *zerolog.Logger

	mu      sync.Mutex
	online  bool
	subs    map[int]func(online bool)
	nextSub int
	waiters []chan struct{}
}

func NewMonitor(initialOnline bool, logger *zerolog.Logger) *Monitor {
	return &Monitor{
		logger: logger,
		online: initialOnline,
		subs:   make(map[int]func(bool)),
	}
}

// Online returns the last known state without blocking.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a state report. Only actual transitions notify
// subscribers and release waiters.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online

	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}

	var waiters []chan struct{}
	if online {
		waiters = m.waiters
		m.waiters = nil
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info().Bool("online", online).Msg("connectivity changed")
	}

	for _, ch := range waiters {
		close(ch)
	}
	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a transition callback and returns its unsubscribe.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// WaitForOnline returns a channel closed the next time the monitor goes
// online, or an already-closed channel when it is online now.
func (m *Monitor) WaitForOnline() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan struct{})
	if m.online {
		close(ch)
		return ch
	}
	m.waiters = append(m.waiters, ch)
	return ch
}

// Run polls the provider until ctx is done. A probe error keeps the last
// known value rather than assuming a state.
func (m *Monitor) Run(ctx context.Context, provider Provider, interval time.Duration, clock clockwork.Clock) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	for {
		online, err := provider.Probe(ctx)
		if err != nil {
			if m.logger != nil {
				m.logger.Debug().Err(err).Msg("connectivity probe failed, keeping last value")
			}
		} else {
			m.SetOnline(online)
		}

		select {
		case <-ctx.Done():
			return
		case <-clock.After(interval):
		}
	}
}

// HTTPProvider probes reachability with a HEAD request to a health URL.
type HTTPProvider struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProvider) Probe(ctx context.Context) (bool, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false, err
	}

	resp, err := client.Do(req)
	if err != nil {
		// Unreachable is a definite answer, not a probe failure.
		return false, nil
	}
	resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError, nil
}

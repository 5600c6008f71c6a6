package connectivity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorDeduplicatesTransitions(t *testing.T) {
	logger := zerolog.Nop()
	m := NewMonitor(false, &logger)

	var transitions []bool
	unsubscribe := m.Subscribe(func(online bool) {
		transitions = append(transitions, online)
	})

	// Redundant reports must not fire subscribers.
	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(true)
	m.SetOnline(true)
	m.SetOnline(false)

	assert.Equal(t, []bool{true, false}, transitions)

	unsubscribe()
	m.SetOnline(true)
	assert.Equal(t, []bool{true, false}, transitions)
}

func TestWaitForOnlineImmediate(t *testing.T) {
	m := NewMonitor(true, nil)

	select {
	case <-m.WaitForOnline():
	default:
		t.Fatal("expected an already-closed channel while online")
	}
}

func TestWaitForOnlineReleasesOnTransition(t *testing.T) {
	m := NewMonitor(false, nil)

	ch := m.WaitForOnline()
	select {
	case <-ch:
		t.Fatal("channel closed while still offline")
	default:
	}

	m.SetOnline(true)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released on the online transition")
	}

	// A waiter resolves exactly once; the next wait needs a new channel.
	m.SetOnline(false)
	next := m.WaitForOnline()
	select {
	case <-next:
		t.Fatal("fresh waiter resolved while offline")
	default:
	}
}

type fakeProvider struct {
	results []bool
	errs    []error
	calls   int
}

func (f *fakeProvider) Probe(ctx context.Context) (bool, error) {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], f.errs[i]
}

func TestRunKeepsLastValueOnProbeError(t *testing.T) {
	m := NewMonitor(true, nil)

	provider := &fakeProvider{
		results: []bool{false, false},
		errs:    []error{errors.New("dbus unavailable"), errors.New("dbus unavailable")},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, provider, time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return provider.calls >= 2 }, time.Second, time.Millisecond)
	assert.True(t, m.Online(), "failed probes must not flip the state")

	cancel()
	<-done
}

func TestHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := &HTTPProvider{URL: srv.URL}

	online, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, online)

	srv.Close()
	online, err = p.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, online)
}

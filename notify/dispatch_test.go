package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/AntoineSierzputowski/carmen/notify"
)

type mockNotifier struct {
	mu       sync.Mutex
	calls    int
	failures int // fail the first n calls
	err      error
}

func (m *mockNotifier) Notify(ctx context.Context, subject, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		if m.err != nil {
			return m.err
		}
		return errors.New("delivery failed")
	}
	return nil
}

func (m *mockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestDispatcher_Empty(t *testing.T) {
	should.True(t, notify.NewDispatcher().Empty())
	should.False(t, notify.NewDispatcher(&mockNotifier{}).Empty())
}

func TestDispatcher_DeliversToAll(t *testing.T) {
	a := &mockNotifier{}
	b := &mockNotifier{}
	d := notify.NewDispatcher(a, b)

	must.NoError(t, d.Dispatch(context.Background(), "subject", "message"))
	should.Equal(t, 1, a.Calls())
	should.Equal(t, 1, b.Calls())
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	n := &mockNotifier{failures: 2}
	d := notify.NewDispatcher(n)

	must.NoError(t, d.Dispatch(context.Background(), "subject", "message"))
	should.Equal(t, 3, n.Calls())
}

func TestDispatcher_ReportsExhaustedNotifier(t *testing.T) {
	dead := &mockNotifier{failures: 100}
	alive := &mockNotifier{}
	d := notify.NewDispatcher(dead, alive)

	err := d.Dispatch(context.Background(), "subject", "message")
	should.Error(t, err)
	should.Equal(t, 4, dead.Calls(), "initial attempt plus three retries")
	should.Equal(t, 1, alive.Calls(), "one dead notifier must not block the others")
}

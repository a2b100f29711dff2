package connectivity

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPinger struct {
	results []error
	calls   int
}

func (p *scriptedPinger) PingContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("probe without deadline")
	}
	err := p.results[p.calls%len(p.results)]
	p.calls++
	return err
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestMonitor_FiresOnEveryRestore(t *testing.T) {
	down := errors.New("connection refused")
	pinger := &scriptedPinger{results: []error{nil, nil, down, down, nil}}
	m := NewMonitor(pinger, time.Second, quietLogger())

	restores := 0
	m.OnRestore(func(context.Context) { restores++ })
	assert.False(t, m.IsOnline())

	require.NoError(t, m.Check(context.Background())) // first success counts as a restore
	assert.True(t, m.IsOnline())
	assert.Equal(t, 1, restores)

	require.NoError(t, m.Check(context.Background()))
	assert.Equal(t, 1, restores, "staying online is not a transition")

	err := m.Check(context.Background())
	assert.ErrorIs(t, err, down)
	assert.False(t, m.IsOnline())
	assert.Error(t, m.Check(context.Background()))

	require.NoError(t, m.Check(context.Background()))
	assert.True(t, m.IsOnline())
	assert.Equal(t, 2, restores)
}

func TestMonitor_MarkOffline(t *testing.T) {
	m := NewMonitor(&scriptedPinger{results: []error{nil}}, 0, quietLogger())

	var order []string
	m.OnRestore(func(context.Context) { order = append(order, "first") })
	m.OnRestore(func(context.Context) { order = append(order, "second") })

	require.NoError(t, m.Check(context.Background()))
	m.MarkOffline()
	assert.False(t, m.IsOnline())
	require.NoError(t, m.Check(context.Background()))

	assert.Equal(t, []string{"first", "second", "first", "second"}, order)
}

package telegram

import (
	"context"
	"errors"
	"testing"

	"geo_checkin_bot/internal/app"
	"geo_checkin_bot/internal/domain/checkin"

	"github.com/stretchr/testify/assert"
)

type fakeProbe struct {
	online    bool
	err       error
	onRestore func()
}

func (p *fakeProbe) IsOnline() bool { return p.online }

func (p *fakeProbe) Check(_ context.Context) error {
	if p.err != nil {
		p.online = false
		return p.err
	}
	if !p.online {
		p.online = true
		if p.onRestore != nil {
			p.onRestore()
		}
	}
	return nil
}

type fakeReplayer struct {
	pending int
	calls   int
	last    app.ReplaySummary
}

func (r *fakeReplayer) ReplayAll(_ context.Context) app.ReplaySummary {
	r.calls++
	r.last = app.ReplaySummary{Synced: r.pending}
	r.pending = 0
	return r.last
}

func (r *fakeReplayer) LastReplay() app.ReplaySummary { return r.last }

func (r *fakeReplayer) Queue() ([]checkin.QueueEntry, error) {
	return make([]checkin.QueueEntry, r.pending), nil
}

func TestSyncNow(t *testing.T) {
	t.Run("restore replays once and reports it", func(t *testing.T) {
		r := &fakeReplayer{pending: 2}
		probe := &fakeProbe{onRestore: func() { r.ReplayAll(context.Background()) }}

		summary, queued := syncNow(context.Background(), probe, r)
		assert.Equal(t, 1, r.calls)
		assert.Equal(t, 2, summary.Synced)
		assert.Equal(t, 0, queued)
		assert.Equal(t, "Sync finished: 2 synced, 0 failed, 0 still queued.", replaySummaryText(summary, queued))
	})

	t.Run("already online replays", func(t *testing.T) {
		r := &fakeReplayer{pending: 1}
		summary, queued := syncNow(context.Background(), &fakeProbe{online: true}, r)
		assert.Equal(t, 1, r.calls)
		assert.Equal(t, 1, summary.Synced)
		assert.Equal(t, 0, queued)
	})

	t.Run("database unreachable", func(t *testing.T) {
		r := &fakeReplayer{pending: 3}
		summary, queued := syncNow(context.Background(), &fakeProbe{err: errors.New("connection refused")}, r)
		assert.Equal(t, 0, r.calls)
		assert.True(t, summary.Skipped)
		assert.Equal(t, 3, queued)
	})
}

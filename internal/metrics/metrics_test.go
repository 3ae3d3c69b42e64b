package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, OutcomeOK},
		{"engine", engine.ErrConstraint, "ConstraintError"},
		{"wrapped engine", fmt.Errorf("write: %w", engine.ErrNotFound), "NotFoundError"},
		{"other", errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestObserve(t *testing.T) {
	m := New()

	m.Observe("write", 5*time.Millisecond, nil)
	m.Observe("write", time.Millisecond, engine.ErrConstraint)
	m.Observe("read", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("write", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("write", "ConstraintError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("read", OutcomeOK)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestRecorderWiring(t *testing.T) {
	db, err := engine.Open(filepath.Join(t.TempDir(), "metrics.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateCollection(engine.CollectionSchema{Name: "users", KeyPath: engine.Path("id")}))

	m := New()

	ex, err := action.New(action.Write, db, "users")
	require.NoError(t, err)

	_, err = ex.WithRecorder(m).WithPayload(map[string]any{"id": "1"}).Execute(context.Background())
	require.NoError(t, err)

	_, err = ex.Execute(context.Background())
	require.ErrorIs(t, err, engine.ErrConstraint)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("write", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("write", "ConstraintError")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe("clear", time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "recstore.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `recstore_actions_total{action="clear",outcome="ok"} 1`)
	assert.Contains(t, string(data), "recstore_action_duration_seconds_bucket")
}

package journal

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/internal/database"
	"github.com/dualcarla/bridge/internal/model"
)

// newTestBackend opens the shared in-memory SQLite database. Records are
// scoped by run ID, so tests do not interfere with each other.
func newTestBackend(t *testing.T) *dbBackend {
	t.Helper()
	db, err := database.OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))
	return newDBBackend(db, "", 0, zerolog.Nop())
}

func testRun() *model.Run {
	return &model.Run{
		StartTime:  time.Now().UTC(),
		StepLength: 0.05,
		Scheme:     "offset",
		ZoneAxis:   "x",
		ZoneStart:  -8.5,
		ZoneEnd:    8.5,
		WorldNames: model.JSONStrings([]string{"A", "B"}),
	}
}

func TestStartRun_PersistsHeader(t *testing.T) {
	b := newTestBackend(t)
	run := testRun()
	require.NoError(t, b.StartRun(run))
	defer b.EndRun(0)

	assert.NotZero(t, run.ID)

	var stored model.Run
	require.NoError(t, b.db.First(&stored, run.ID).Error)
	assert.Equal(t, "offset", stored.Scheme)
	assert.InDelta(t, -8.5, stored.ZoneStart, 1e-9)
}

func TestFlush_WritesBufferedRecords(t *testing.T) {
	b := newTestBackend(t)
	run := testRun()
	require.NoError(t, b.StartRun(run))
	defer b.EndRun(0)

	b.RecordVehicleState(model.VehicleState{
		Time:           time.Now().UTC(),
		Step:           3,
		VehicleID:      "flow_0.1",
		SourcePosition: model.Point(100, 50),
		TargetPosition: model.Point(-300, -50),
		Yaw:            45,
		Membership:     model.JSONStrings([]string{"A"}),
	})
	b.RecordSyncEvent(model.SyncEvent{
		Time:      time.Now().UTC(),
		Step:      3,
		VehicleID: "flow_0.1",
		World:     "A",
		Event:     model.EventSpawn,
		ActorID:   42,
	})
	assert.Equal(t, 2, b.QueueDepth())

	b.flush()
	assert.Equal(t, 0, b.QueueDepth())

	var states int64
	require.NoError(t, b.db.Model(&model.VehicleState{}).Where("run_id = ?", run.ID).Count(&states).Error)
	assert.EqualValues(t, 1, states)

	var event model.SyncEvent
	require.NoError(t, b.db.Where("run_id = ?", run.ID).First(&event).Error)
	assert.Equal(t, model.EventSpawn, event.Event)
	assert.EqualValues(t, 42, event.ActorID)
}

func TestEndRun_FlushesAndStampsFooter(t *testing.T) {
	b := newTestBackend(t)
	run := testRun()
	require.NoError(t, b.StartRun(run))

	b.RecordSyncEvent(model.SyncEvent{
		Time:      time.Now().UTC(),
		VehicleID: "veh0",
		World:     "B",
		Event:     model.EventDestroy,
	})
	require.NoError(t, b.EndRun(120))

	var stored model.Run
	require.NoError(t, b.db.First(&stored, run.ID).Error)
	assert.EqualValues(t, 120, stored.Steps)
	assert.False(t, stored.EndTime.IsZero())

	var events int64
	require.NoError(t, b.db.Model(&model.SyncEvent{}).Where("run_id = ?", run.ID).Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestNopBackend(t *testing.T) {
	var b Backend = Nop{}
	require.NoError(t, b.StartRun(testRun()))
	b.RecordVehicleState(model.VehicleState{})
	b.RecordSyncEvent(model.SyncEvent{})
	assert.Equal(t, 0, b.QueueDepth())
	require.NoError(t, b.EndRun(10))
	require.NoError(t, b.Close())
}

func TestNewBackend_None(t *testing.T) {
	b, err := NewBackend(config.JournalConfig{Type: "none"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, b)
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(config.JournalConfig{Type: "etcd"}, zerolog.Nop())
	assert.Error(t, err)
}

package journal

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/dualcarla/bridge/internal/database"
	"github.com/dualcarla/bridge/internal/model"
	"github.com/dualcarla/bridge/internal/queue"
)

const flushInterval = 1 * time.Second

// dbBackend writes the journal through gorm. It serves both the SQLite and
// Postgres configurations; dumpPath is set only for the in-memory SQLite
// variant, which is vacuumed to disk periodically and at shutdown.
type dbBackend struct {
	db  *gorm.DB
	log zerolog.Logger

	run    *model.Run
	states *queue.Queue[model.VehicleState]
	events *queue.Queue[model.SyncEvent]

	dumpPath     string
	dumpInterval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func newDBBackend(db *gorm.DB, dumpPath string, dumpInterval time.Duration, log zerolog.Logger) *dbBackend {
	return &dbBackend{
		db:           db,
		log:          log,
		states:       queue.New[model.VehicleState](),
		events:       queue.New[model.SyncEvent](),
		dumpPath:     dumpPath,
		dumpInterval: dumpInterval,
		stop:         make(chan struct{}),
	}
}

func (b *dbBackend) StartRun(run *model.Run) error {
	if err := b.db.Create(run).Error; err != nil {
		return fmt.Errorf("creating run record: %w", err)
	}
	b.run = run
	b.wg.Add(1)
	go b.worker()
	return nil
}

// worker flushes the queues on a fixed cadence and, for the in-memory SQLite
// variant, dumps the database to disk on its own slower cadence.
func (b *dbBackend) worker() {
	defer b.wg.Done()

	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()

	var dumpC <-chan time.Time
	if b.dumpPath != "" && b.dumpInterval > 0 {
		dumpTicker := time.NewTicker(b.dumpInterval)
		defer dumpTicker.Stop()
		dumpC = dumpTicker.C
	}

	for {
		select {
		case <-flushTicker.C:
			b.flush()
		case <-dumpC:
			if err := database.DumpMemoryToDisk(b.db, b.dumpPath, b.log); err != nil {
				b.log.Error().Err(err).Msg("Journal dump failed")
			}
		case <-b.stop:
			return
		}
	}
}

// flush drains both queues into the database.
func (b *dbBackend) flush() {
	states := b.states.GetAndEmpty()
	for i := range states {
		states[i].RunID = b.run.ID
	}
	if len(states) > 0 {
		if err := b.db.Create(&states).Error; err != nil {
			b.log.Error().Err(err).Int("count", len(states)).Msg("Failed to write vehicle states")
		}
	}

	events := b.events.GetAndEmpty()
	for i := range events {
		events[i].RunID = b.run.ID
	}
	if len(events) > 0 {
		if err := b.db.Create(&events).Error; err != nil {
			b.log.Error().Err(err).Int("count", len(events)).Msg("Failed to write sync events")
		}
	}
}

func (b *dbBackend) RecordVehicleState(s model.VehicleState) {
	b.states.Push(s)
}

func (b *dbBackend) RecordSyncEvent(e model.SyncEvent) {
	b.events.Push(e)
}

func (b *dbBackend) QueueDepth() int {
	return b.states.Len() + b.events.Len()
}

func (b *dbBackend) EndRun(steps uint64) error {
	close(b.stop)
	b.wg.Wait()
	b.flush()

	b.run.EndTime = time.Now().UTC()
	b.run.Steps = steps
	if err := b.db.Save(b.run).Error; err != nil {
		return fmt.Errorf("finalizing run record: %w", err)
	}

	if b.dumpPath != "" {
		if err := database.DumpMemoryToDisk(b.db, b.dumpPath, b.log); err != nil {
			return fmt.Errorf("final journal dump: %w", err)
		}
	}
	return nil
}

func (b *dbBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package monitor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dualcarla/bridge/internal/config"
	"github.com/dualcarla/bridge/internal/influx"
	"github.com/dualcarla/bridge/internal/journal"
	"github.com/dualcarla/bridge/internal/registry"
)

func influxConfigDisabled() config.InfluxConfig {
	return config.InfluxConfig{Enabled: false}
}

func TestStats(t *testing.T) {
	var s Stats
	assert.EqualValues(t, 0, s.Steps())
	assert.Equal(t, time.Duration(0), s.LastStepDuration())

	s.RecordStep(30 * time.Millisecond)
	s.RecordStep(45 * time.Millisecond)

	assert.EqualValues(t, 2, s.Steps())
	assert.Equal(t, 45*time.Millisecond, s.LastStepDuration())
}

func TestService_StartStop(t *testing.T) {
	svc := NewService(Dependencies{
		Influx:   influx.NewManager(influxConfigDisabled(), "", zerolog.Nop()),
		Journal:  journal.Nop{},
		Registry: registry.New(),
		Stats:    &Stats{},
		Interval: time.Hour, // never ticks during the test
		Logger:   zerolog.Nop(),
	})

	assert.False(t, svc.IsRunning())

	svc.Start()
	svc.Start() // second start is a no-op
	assert.Eventually(t, svc.IsRunning, time.Second, 5*time.Millisecond)

	// back-to-back stops must not close the stop channel twice
	svc.Stop()
	svc.Stop()
	assert.False(t, svc.IsRunning())
}

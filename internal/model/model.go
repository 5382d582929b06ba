// Package model defines the run journal schema. A run is one bridge session;
// vehicle states and sync events reference it.
package model

import (
	"encoding/json"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Point builds a 2D journal point.
func Point(x, y float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// JSONStrings converts a string slice to a JSON column value.
func JSONStrings(values []string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

// DatabaseModels lists every struct migrated into the journal schema.
var DatabaseModels = []interface{}{
	&Run{},
	&VehicleState{},
	&SyncEvent{},
}

// Run is one bridge session from connect to teardown.
type Run struct {
	gorm.Model
	StartTime  time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_run_start"`
	EndTime    time.Time      `json:"endTime" gorm:"type:timestamptz"`
	StepLength float64        `json:"stepLength"`
	Scheme     string         `json:"scheme" gorm:"size:16"` // calibration scheme in effect
	ZoneAxis   string         `json:"zoneAxis" gorm:"size:1"`
	ZoneStart  float64        `json:"zoneStart"`
	ZoneEnd    float64        `json:"zoneEnd"`
	WorldNames datatypes.JSON `json:"worldNames" gorm:"default:'[]'"` // target world names, A first
	Steps      uint64         `json:"steps"`                          // total steps completed
}

func (*Run) TableName() string {
	return "runs"
}

// VehicleState is one vehicle's pose at one step, after transformation.
type VehicleState struct {
	ID    uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time  time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID uint      `json:"runId" gorm:"index:idx_vehiclestate_run_id"`
	Run   Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Step  uint64    `json:"step" gorm:"index:idx_vehiclestate_step"`

	VehicleID      string         `json:"vehicleId" gorm:"size:64;index:idx_vehiclestate_vehicle_id"`
	SourcePosition geom.Point     `json:"sourcePosition"` // source-frame x,y
	TargetPosition geom.Point     `json:"targetPosition"` // target-frame x,y after calibration
	Yaw            float64        `json:"yaw"`            // target-frame heading in degrees
	Membership     datatypes.JSON `json:"membership" gorm:"default:'[]'"` // world names the vehicle occupies
}

func (*VehicleState) TableName() string {
	return "vehicle_states"
}

// Event names recorded in SyncEvent.
const (
	EventSpawn       = "spawn"
	EventSpawnBumped = "spawn_bumped"
	EventSpawnFailed = "spawn_failed"
	EventDestroy     = "destroy"
	EventVanished    = "vanished"
)

// SyncEvent records an actor lifecycle change in one target world.
type SyncEvent struct {
	ID    uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time  time.Time `json:"time" gorm:"type:timestamptz;"`
	RunID uint      `json:"runId" gorm:"index:idx_syncevent_run_id"`
	Run   Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Step  uint64    `json:"step" gorm:"index:idx_syncevent_step"`

	VehicleID string `json:"vehicleId" gorm:"size:64;index:idx_syncevent_vehicle_id"`
	World     string `json:"world" gorm:"size:1"` // "A" or "B"
	Event     string `json:"event" gorm:"size:16"`
	ActorID   uint64 `json:"actorId"` // target-world actor ID, zero when no actor exists
}

func (*SyncEvent) TableName() string {
	return "sync_events"
}

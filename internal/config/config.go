// YAML config loader with CUE validation integration
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"flightops-sim/internal/flights"
	"flightops-sim/internal/geo"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/simclock"
)

// Defaults applied to fields the config leaves empty.
const (
	DefaultSpeed          = 1.0
	DefaultTick           = time.Second
	DefaultPlannerTimeout = 10 * time.Second
	DefaultPlannerRetries = 3
	DefaultSaveInterval   = 30 * time.Second
	DefaultAdminAddr      = ":8080"
	DefaultGreptimePort   = 4001
	DefaultDatabase       = "public"
	DefaultStateDir       = "state"
)

// ClockConfig seeds the simulation clock.
type ClockConfig struct {
	Start        string        `yaml:"start"`
	Speed        float64       `yaml:"speed"`
	Tick         time.Duration `yaml:"tick"`
	Autostart    bool          `yaml:"autostart"`
	WindowLength time.Duration `yaml:"window_length"`
	TriggerLead  time.Duration `yaml:"trigger_lead"`
}

// PlannerConfig points at the external re-optimization endpoint. An empty
// URL means triggers are only logged. A nil Retries takes the default; an
// explicit zero disables retries.
type PlannerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Retries *int          `yaml:"retries"`
}

// MaxRetries returns the configured retry count or the default.
func (p PlannerConfig) MaxRetries() int {
	if p.Retries == nil {
		return DefaultPlannerRetries
	}
	return *p.Retries
}

// PersistenceConfig controls where the clock record lives.
type PersistenceConfig struct {
	Dir          string        `yaml:"dir"`
	SaveInterval time.Duration `yaml:"save_interval"`
	Restore      bool          `yaml:"restore"`
}

// AdminConfig configures the HTTP control surface.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// GreptimeConfig selects the GreptimeDB output.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// OutputConfig lists optional sinks besides STDOUT.
type OutputConfig struct {
	LogFile  string         `yaml:"log_file"`
	Greptime GreptimeConfig `yaml:"greptime"`
}

// PointConfig is a lat/lng pair in degrees.
type PointConfig struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

func (p PointConfig) point() geo.Point { return geo.Point{Lat: p.Lat, Lng: p.Lng} }

// FlightConfig is one scheduled flight. Times are RFC 3339.
type FlightConfig struct {
	Code        string      `yaml:"code"`
	Origin      PointConfig `yaml:"origin"`
	Destination PointConfig `yaml:"destination"`
	Departure   string      `yaml:"departure"`
	Arrival     string      `yaml:"arrival"`
}

// RoamerConfig is one free-roaming entity.
type RoamerConfig struct {
	ID         string      `yaml:"id"`
	Position   PointConfig `yaml:"position"`
	Heading    float64     `yaml:"heading"`
	SpeedKnots *float64    `yaml:"speed_knots"`
	Status     string      `yaml:"status"`
}

// SimulationConfig is the root configuration.
type SimulationConfig struct {
	Clock       ClockConfig       `yaml:"clock"`
	Planner     PlannerConfig     `yaml:"planner"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Admin       AdminConfig       `yaml:"admin"`
	Outputs     OutputConfig      `yaml:"outputs"`
	Flights     []FlightConfig    `yaml:"flights"`
	Roamers     []RoamerConfig    `yaml:"roamers"`
}

// Load reads a YAML config, validates it against the CUE schema at
// schemaPath (or the embedded one when empty), applies environment
// overrides and fills defaults.
func Load(configPath, schemaPath string) (*SimulationConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read YAML config: %w", err)
	}
	schema := embeddedSchema
	if schemaPath != "" {
		if schema, err = os.ReadFile(schemaPath); err != nil {
			return nil, fmt.Errorf("cannot read CUE schema: %w", err)
		}
	}
	return Parse(data, schema)
}

// Parse is Load for in-memory documents.
func Parse(data, schema []byte) (*SimulationConfig, error) {
	if err := ValidateWithCue(data, schema); err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SimulationConfig) applyEnv() error {
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TICK_INTERVAL: %w", err)
		}
		c.Clock.Tick = d
	}
	if v := os.Getenv("SIM_SPEED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SIM_SPEED: %w", err)
		}
		c.Clock.Speed = f
	}
	if v := os.Getenv("PLANNER_URL"); v != "" {
		c.Planner.URL = v
	}
	if v := os.Getenv("STATE_DIR"); v != "" {
		c.Persistence.Dir = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Outputs.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Outputs.Greptime.Database = v
	}
	return nil
}

func (c *SimulationConfig) applyDefaults() {
	if c.Clock.Speed == 0 {
		c.Clock.Speed = DefaultSpeed
	}
	if c.Clock.Tick <= 0 {
		c.Clock.Tick = DefaultTick
	}
	if c.Planner.Timeout <= 0 {
		c.Planner.Timeout = DefaultPlannerTimeout
	}
	if c.Planner.Retries == nil {
		n := DefaultPlannerRetries
		c.Planner.Retries = &n
	}
	if c.Persistence.Dir == "" {
		c.Persistence.Dir = DefaultStateDir
	}
	if c.Persistence.SaveInterval <= 0 {
		c.Persistence.SaveInterval = DefaultSaveInterval
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = DefaultAdminAddr
	}
	if c.Outputs.Greptime.Port == 0 {
		c.Outputs.Greptime.Port = DefaultGreptimePort
	}
	if c.Outputs.Greptime.Database == "" {
		c.Outputs.Greptime.Database = DefaultDatabase
	}
}

// Check catches what the schema cannot: unparsable timestamps and
// non-positive speeds arriving through the environment.
func (c *SimulationConfig) Check() error {
	if c.Clock.Speed <= 0 {
		return fmt.Errorf("clock.speed must be positive, got %v", c.Clock.Speed)
	}
	if c.Clock.Start != "" {
		if _, err := time.Parse(time.RFC3339, c.Clock.Start); err != nil {
			return fmt.Errorf("clock.start: %w", err)
		}
	}
	if _, err := c.FlightSchedules(); err != nil {
		return err
	}
	return nil
}

// StartTime returns the configured clock start, or fallback when unset.
func (c *SimulationConfig) StartTime(fallback time.Time) time.Time {
	if c.Clock.Start == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, c.Clock.Start)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// Window returns the re-optimization window geometry.
func (c *SimulationConfig) Window() simclock.Window {
	return simclock.Window{Length: c.Clock.WindowLength, Lead: c.Clock.TriggerLead}
}

// FlightSchedules converts the flights section. Schedules whose arrival is
// not after departure are kept; the tracker treats them as not departed.
func (c *SimulationConfig) FlightSchedules() ([]flights.Flight, error) {
	out := make([]flights.Flight, 0, len(c.Flights))
	for i, f := range c.Flights {
		dep, err := time.Parse(time.RFC3339, f.Departure)
		if err != nil {
			return nil, fmt.Errorf("flights[%d] %s departure: %w", i, f.Code, err)
		}
		arr, err := time.Parse(time.RFC3339, f.Arrival)
		if err != nil {
			return nil, fmt.Errorf("flights[%d] %s arrival: %w", i, f.Code, err)
		}
		out = append(out, flights.Flight{
			Code:        f.Code,
			Origin:      f.Origin.point(),
			Destination: f.Destination.point(),
			Departure:   dep.UTC(),
			Arrival:     arr.UTC(),
		})
	}
	return out, nil
}

// RoamerEntities converts the roamers section.
func (c *SimulationConfig) RoamerEntities() []kinematics.Entity {
	out := make([]kinematics.Entity, 0, len(c.Roamers))
	for _, r := range c.Roamers {
		e := kinematics.NewEntity(r.ID, r.Position.point(), r.Heading, r.SpeedKnots)
		if r.Status != "" {
			e.Status = kinematics.Status(r.Status)
		}
		out = append(out, e)
	}
	return out
}

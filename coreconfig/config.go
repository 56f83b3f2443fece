// Package coreconfig loads a node's bootstrap configuration from TOML,
// naming every interval and policy default that would otherwise be a magic
// number buried in the core's consensus and anti-entropy logic.
package coreconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is a node's bootstrap configuration.
type Config struct {
	// ConnectionInfoPath is where the node writes its reachable address for
	// other peers to discover, per the external-interfaces environment
	// variables (out of scope for the core itself to interpret further).
	ConnectionInfoPath string `toml:"connection_info_path"`
	// InMemoryStorage, when true, skips durable corestore persistence.
	InMemoryStorage bool `toml:"in_memory_storage"`
	// UnlimitedMutations disables any local rate limiting on client writes.
	UnlimitedMutations bool `toml:"unlimited_mutations"`

	DataDir string `toml:"data_dir"`

	Intervals   IntervalsConfig   `toml:"intervals"`
	Relocation  RelocationConfig  `toml:"relocation"`
	Handover    HandoverConfig    `toml:"handover"`
}

// IntervalsConfig names every resend/probe timing constant from section 4.
type IntervalsConfig struct {
	MembershipResend     Duration `toml:"membership_resend"`
	DkgResend            Duration `toml:"dkg_resend"`
	AEProbeDedupe        Duration `toml:"ae_probe_dedupe"`
	AEBackgroundProbe    Duration `toml:"ae_background_probe"`
	SchedulerDefaultTTL  Duration `toml:"scheduler_default_ttl"`
}

// RelocationConfig resolves the open question on the upper age bound for
// forced relocation (spec.md 9 / SPEC_FULL.md 4.7): 0 means unbounded,
// matching "relocate at every power-of-two age indefinitely". No component
// reads MaxAge; relocation does not depend on its value.
type RelocationConfig struct {
	MaxAge uint8 `toml:"max_age"`
}

// HandoverConfig names the split_threshold default (2*elder_size).
type HandoverConfig struct {
	SplitThresholdMultiplier int `toml:"split_threshold_multiplier"`
	// DkgRetryLimit is the bounded retry count after which a persistently
	// failing DKG session is reported to the fault sink (spec.md 4.4).
	DkgRetryLimit int `toml:"dkg_retry_limit"`
}

// Duration wraps time.Duration so it can be parsed from a TOML string like
// "30s", matching the teacher's configuration style of human-readable
// interval fields rather than raw nanosecond integers.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("coreconfig: parsing duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration documented across section 4 and 6:
// membership resend 30s, DKG resend 10s, AE probe dedupe 2s, AE background
// probe 120s, unbounded relocation age, split threshold 2x elder size.
func Default() Config {
	return Config{
		DataDir: "./corenet-data",
		Intervals: IntervalsConfig{
			MembershipResend:    Duration{30 * time.Second},
			DkgResend:           Duration{10 * time.Second},
			AEProbeDedupe:       Duration{2 * time.Second},
			AEBackgroundProbe:   Duration{120 * time.Second},
			SchedulerDefaultTTL: Duration{30 * time.Second},
		},
		Relocation: RelocationConfig{MaxAge: 0},
		Handover: HandoverConfig{
			SplitThresholdMultiplier: 2,
			DkgRetryLimit:            3,
		},
	}
}

// Load reads and parses a TOML config file at path, applying Default() for
// any field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("coreconfig: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("coreconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}

package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int   `yaml:"tick_rate_hz"`
	Seed       int64 `yaml:"seed"`

	ChunkEdge          int `yaml:"chunk_edge"`
	ViewRadiusChunks   int `yaml:"view_radius_chunks"`
	RetainRadiusChunks int `yaml:"retain_radius_chunks"`
	StreamWorkers      int `yaml:"stream_workers"`
	LODBandChunks      int `yaml:"lod_band_chunks"`
	MaxLOD             int `yaml:"max_lod"`

	Pathfinder Pathfinder `yaml:"pathfinder"`
	Enemies    Enemies    `yaml:"enemies"`
	Combat     Combat     `yaml:"combat"`
	Physics    Physics    `yaml:"physics"`
}

type Pathfinder struct {
	MaxDistance   float64 `yaml:"max_distance"`
	MaxExpansions int     `yaml:"max_expansions"`
}

type Enemies struct {
	AggroRetargetTicks  int     `yaml:"aggro_retarget_ticks"`
	PathRecomputeTicks  int     `yaml:"path_recompute_ticks"`
	AttackCooldownTicks int     `yaml:"attack_cooldown_ticks"`
	ContactRange        float64 `yaml:"contact_range"`
	SpawnIntervalTicks  int     `yaml:"spawn_interval_ticks"`
	MaxAlive            int     `yaml:"max_alive"`
	EliteChancePercent  int     `yaml:"elite_chance_percent"`
	EliteHealthScale    int     `yaml:"elite_health_scale"`
}

type Combat struct {
	BaseMeleeDamage int     `yaml:"base_melee_damage"`
	MeleeRange      float64 `yaml:"melee_range"`
	PortalRadius    float64 `yaml:"portal_radius"`
	InteractRadius  float64 `yaml:"interact_radius"`
	PickupRadius    float64 `yaml:"pickup_radius"`
}

type Physics struct {
	Gravity         float64 `yaml:"gravity"`
	MoveSpeed       float64 `yaml:"move_speed"`
	JumpImpulse     float64 `yaml:"jump_impulse"`
	PlayerHalfWidth float64 `yaml:"player_half_width"`
	PlayerHeight    float64 `yaml:"player_height"`
}

// Default returns the values used when no tuning.yaml is present. The
// aggro/path/pathfinder numbers are performance guards, not contract
// values; see configs/tuning.yaml.
func Default() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         60,
		Seed:               1337,
		ChunkEdge:          32,
		ViewRadiusChunks:   4,
		RetainRadiusChunks: 6,
		StreamWorkers:      4,
		LODBandChunks:      2,
		MaxLOD:             2,
		Pathfinder: Pathfinder{
			MaxDistance:   64,
			MaxExpansions: 2000,
		},
		Enemies: Enemies{
			AggroRetargetTicks:  30,
			PathRecomputeTicks:  45,
			AttackCooldownTicks: 60,
			ContactRange:        1.5,
			SpawnIntervalTicks:  300,
			MaxAlive:            24,
			EliteChancePercent:  10,
			EliteHealthScale:    3,
		},
		Combat: Combat{
			BaseMeleeDamage: 5,
			MeleeRange:      2.5,
			PortalRadius:    3.0,
			InteractRadius:  4.0,
			PickupRadius:    3.0,
		},
		Physics: Physics{
			Gravity:         -24.0,
			MoveSpeed:       5.5,
			JumpImpulse:     8.5,
			PlayerHalfWidth: 0.3,
			PlayerHeight:    1.8,
		},
	}
}

// Load parses path over the defaults, so a partial file only overrides
// what it names.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Catalogs bundles the static data tables consumed by the simulation.
// Everything here is immutable after Load.
type Catalogs struct {
	Blocks   BlockCatalog
	Items    ItemCatalog
	Essences EssenceCatalog
	Stones   StoneCatalog
	Enemies  EnemyCatalog
	Quests   QuestCatalog

	// QuestsErr records a failed quest table load. The room logs it and
	// treats start_quest as a permanent no-op; nothing else degrades.
	QuestsErr error
}

type BlockCatalog struct {
	Palette []string
	Index   map[string]uint8
	Defs    map[string]BlockDef
	Digest  string
}

// AtlasTile is a (column, row) cell in the texture atlas.
type AtlasTile [2]int

type BlockDef struct {
	ID          string     `json:"id"`
	Solid       bool       `json:"solid"`
	LightSource bool       `json:"light_source,omitempty"`
	TileAll     *AtlasTile `json:"tile_all,omitempty"`
	TileTop     *AtlasTile `json:"tile_top,omitempty"`
	TileBottom  *AtlasTile `json:"tile_bottom,omitempty"`
	TileSide    *AtlasTile `json:"tile_side,omitempty"`
}

// BlockByIndex resolves a palette index to its block definition.
func (c BlockCatalog) BlockByIndex(idx uint8) (BlockDef, bool) {
	if int(idx) >= len(c.Palette) {
		return BlockDef{}, false
	}
	d, ok := c.Defs[c.Palette[idx]]
	return d, ok
}

// SolidByIndex reports whether a palette index is a solid block.
// Unknown indices read as non-solid.
func (c BlockCatalog) SolidByIndex(idx uint8) bool {
	d, ok := c.BlockByIndex(idx)
	return ok && d.Solid
}

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

// Item kinds.
const (
	ItemConsumable     = "CONSUMABLE"
	ItemWeapon         = "WEAPON"
	ItemArmor          = "ARMOR"
	ItemEssence        = "ESSENCE"
	ItemAwakeningStone = "AWAKENING_STONE"
)

type ItemDef struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Slot    string         `json:"slot,omitempty"` // mainHand/head/chest/legs/feet
	Damage  int            `json:"damage,omitempty"`
	HealHP  int            `json:"heal_hp,omitempty"`
	Bonuses map[string]int `json:"bonuses,omitempty"`
}

type EssenceCatalog struct {
	Defs   map[string]EssenceDef
	Digest string
}

type EssenceDef struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Abilities []AbilityDef `json:"abilities"`
}

// Area-effect shapes.
const (
	AreaSphere = "SPHERE"
	AreaCone   = "CONE"
)

type AbilityDef struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ManaCost      int     `json:"mana_cost"`
	CooldownTicks int     `json:"cooldown_ticks"`
	BaseDamage    int     `json:"base_damage"`
	ScalingStat   string  `json:"scaling_stat,omitempty"`
	Range         float64 `json:"range"`
	Area          string  `json:"area"`
}

type StoneCatalog struct {
	Defs   map[string]StoneDef
	Digest string
}

// Ability activation types granted by awakening stones.
const (
	AbilityInstant = "INSTANT"
	AbilityCharge  = "CHARGE"
)

type StoneDef struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	RequiredEssences []string `json:"required_essences"`
	AbilityType      string   `json:"ability_type"`
	Mods             []Mod    `json:"mods"`
}

// Compatible reports whether the stone may be socketed into essenceID.
// Compatibility is an explicit allow-list match, nothing fuzzy.
func (s StoneDef) Compatible(essenceID string) bool {
	for _, id := range s.RequiredEssences {
		if id == essenceID {
			return true
		}
	}
	return false
}

// Mod kinds. Mod is a closed tagged variant: Kind selects which fields
// are meaningful and consumers switch exhaustively on it.
const (
	ModFlatDamage       = "FLAT_DAMAGE"
	ModStatusEffect     = "STATUS_EFFECT"
	ModCooldownOverride = "COOLDOWN_OVERRIDE"
	ModKnockback        = "KNOCKBACK"
	ModBuff             = "BUFF"
)

type Mod struct {
	Kind string `json:"kind"`

	Amount        int     `json:"amount,omitempty"`         // FLAT_DAMAGE
	Status        string  `json:"status,omitempty"`         // STATUS_EFFECT
	DurationTicks int     `json:"duration_ticks,omitempty"` // STATUS_EFFECT, BUFF
	CooldownTicks int     `json:"cooldown_ticks,omitempty"` // COOLDOWN_OVERRIDE
	Force         float64 `json:"force,omitempty"`          // KNOCKBACK
	Stat          string  `json:"stat,omitempty"`           // BUFF
	StatDelta     int     `json:"stat_delta,omitempty"`     // BUFF
}

type EnemyCatalog struct {
	Types  []string
	Defs   map[string]EnemyDef
	Digest string
}

type EnemyDef struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	MaxHealth  int     `json:"max_health"`
	Damage     int     `json:"damage"`
	MoveSpeed  float64 `json:"move_speed"`
	AggroRange float64 `json:"aggro_range"`
}

type QuestCatalog struct {
	ByID   map[string]QuestDef
	Digest string
}

type QuestDef struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Type       string         `json:"type"`
	Objectives []ObjectiveDef `json:"objectives"`
}

type ObjectiveDef struct {
	Description  string `json:"description"`
	TargetType   string `json:"target_type"` // enemy type id for kill quests
	TargetAmount int    `json:"target_amount"`
}

// Load reads the static tables from configDir. Block/item/essence/
// stone/enemy tables are required; a quest table failure is recorded in
// QuestsErr and leaves an empty quest catalog.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadEssences(filepath.Join(configDir, "essences.json"), &c.Essences); err != nil {
		return nil, err
	}
	if err := loadStones(filepath.Join(configDir, "stones.json"), &c.Stones); err != nil {
		return nil, err
	}
	if err := loadEnemies(filepath.Join(configDir, "enemies.json"), &c.Enemies); err != nil {
		return nil, err
	}

	c.Quests = QuestCatalog{ByID: map[string]QuestDef{}}
	if err := loadQuests(filepath.Join(configDir, "quests.json"), &c.Quests); err != nil {
		c.Quests.ByID = map[string]QuestDef{}
		c.QuestsErr = err
	}

	return &c, nil
}

func readJSON(path string, v any) (digest string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func loadBlocks(path string, out *BlockCatalog) error {
	var defs []BlockDef
	digest, err := readJSON(path, &defs)
	if err != nil {
		return err
	}
	if len(defs) > 256 {
		return fmt.Errorf("blocks.json: palette exceeds 256 entries")
	}
	out.Digest = digest
	out.Defs = make(map[string]BlockDef, len(defs))
	out.Index = make(map[string]uint8, len(defs))
	out.Palette = make([]string, 0, len(defs))
	for i, d := range defs {
		out.Defs[d.ID] = d
		out.Index[d.ID] = uint8(i)
		out.Palette = append(out.Palette, d.ID)
	}
	if len(out.Palette) == 0 || out.Palette[0] != "AIR" {
		return fmt.Errorf("blocks.json: first palette entry must be AIR")
	}
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	var defs []ItemDef
	digest, err := readJSON(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.Defs = make(map[string]ItemDef, len(defs))
	for _, d := range defs {
		out.Defs[d.ID] = d
	}
	return nil
}

func loadEssences(path string, out *EssenceCatalog) error {
	var defs []EssenceDef
	digest, err := readJSON(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.Defs = make(map[string]EssenceDef, len(defs))
	for _, d := range defs {
		out.Defs[d.ID] = d
	}
	return nil
}

func loadStones(path string, out *StoneCatalog) error {
	var defs []StoneDef
	digest, err := readJSON(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.Defs = make(map[string]StoneDef, len(defs))
	for _, d := range defs {
		for _, m := range d.Mods {
			switch m.Kind {
			case ModFlatDamage, ModStatusEffect, ModCooldownOverride, ModKnockback, ModBuff:
			default:
				return fmt.Errorf("stones.json: %s: unknown mod kind %q", d.ID, m.Kind)
			}
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadEnemies(path string, out *EnemyCatalog) error {
	var defs []EnemyDef
	digest, err := readJSON(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.Defs = make(map[string]EnemyDef, len(defs))
	out.Types = make([]string, 0, len(defs))
	for _, d := range defs {
		out.Defs[d.ID] = d
		out.Types = append(out.Types, d.ID)
	}
	sort.Strings(out.Types)
	return nil
}

func loadQuests(path string, out *QuestCatalog) error {
	var defs []QuestDef
	digest, err := readJSON(path, &defs)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.ByID = make(map[string]QuestDef, len(defs))
	for _, d := range defs {
		out.ByID[d.ID] = d
	}
	return nil
}

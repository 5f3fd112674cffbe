package rdl

import (
	"math"

	"github.com/pkg/errors"
)

type Family int

const (
	FamilyLegacy Family = iota
	FamilyPrimary
	FamilyExtended
)

func (f Family) String() string {
	switch f {
	case FamilyLegacy:
		return "legacy"
	case FamilyPrimary:
		return "primary"
	case FamilyExtended:
		return "extended"
	}
	return "unknown"
}

// Extension used for level files of family
func (f Family) FileExt() string {
	if f == FamilyLegacy {
		return ".rdl"
	}
	return ".rl2"
}

const (
	MinGameVersion = 22

	ContainerVersionLegacy      = 1
	ContainerVersionPrimaryMin  = 2
	ContainerVersionPrimaryMax  = 8
	ContainerVersionExtendedMin = 9
	ContainerVersionExtendedMax = 27
)

type versionRange struct {
	minContainer, maxContainer int32
	maxGame, defaultGame       int16
}

var familyRanges = [...]versionRange{
	FamilyLegacy:   {ContainerVersionLegacy, ContainerVersionLegacy, 25, 25},
	FamilyPrimary:  {ContainerVersionPrimaryMin, ContainerVersionPrimaryMax, 32, 32},
	FamilyExtended: {ContainerVersionExtendedMin, ContainerVersionExtendedMax, 40, 40},
}

func FamilyOf(containerVersion int32) (Family, error) {
	for f, r := range familyRanges {
		if containerVersion >= r.minContainer && containerVersion <= r.maxContainer {
			return Family(f), nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedVersion, "container version %d", containerVersion)
}

// Version is pair of independent counters gating binary layout
type Version struct {
	Container int32
	Game      int16
}

// DefaultVersion returns version with default game data version of family
func DefaultVersion(containerVersion int32) (Version, error) {
	f, err := FamilyOf(containerVersion)
	if err != nil {
		return Version{}, err
	}
	return Version{Container: containerVersion, Game: familyRanges[f].defaultGame}, nil
}

func (v Version) Family() Family {
	f, _ := FamilyOf(v.Container)
	return f
}

func (v Version) checkGame() error {
	f, err := FamilyOf(v.Container)
	if err != nil {
		return err
	}
	if v.Game < MinGameVersion || v.Game > familyRanges[f].maxGame {
		return errors.Wrapf(ErrGameDataVersion, "game data version %d for %s container version %d",
			v.Game, f, v.Container)
	}
	return nil
}

type Feature int

const (
	HostageTextOffset Feature = iota
	HeaderPlaceholder
	PaletteName
	ReactorTime
	ReactorStrength
	SecretReturn
	AnimatedLights
	SpecialInlineAfter
	SpecialInlineBefore
	SpecialSecondPass
	ShortStaticLight
	SegmentOwner
	WideWallNumbers
	SegmentProps
	LevelName
	LevelNameNewline
	ModelNames
	PowerupCount
	AIFollowPath
	MatCenterTwoWords
	DeltaLights
	ModernTriggers
	ObjectTriggers
	PowerupMatCenters
	FogPresets
	featuresCount
)

type counter int

const (
	byContainer counter = iota
	byGame
)

type threshold struct {
	name     string
	counter  counter
	min, max int
	extended bool
}

const unbounded = math.MaxInt32

// Every version dependent layout decision of reader and writer
var thresholds = [featuresCount]threshold{
	HostageTextOffset:   {"hostage_text_offset", byContainer, 0, 4, false},
	HeaderPlaceholder:   {"header_placeholder", byContainer, 8, unbounded, false},
	PaletteName:         {"palette_name", byContainer, 2, unbounded, false},
	ReactorTime:         {"reactor_time", byContainer, 3, unbounded, false},
	ReactorStrength:     {"reactor_strength", byContainer, 4, unbounded, false},
	SecretReturn:        {"secret_return", byContainer, 6, unbounded, false},
	AnimatedLights:      {"animated_lights", byContainer, 7, unbounded, false},
	// legacy order is children, vertices, special as in shipped levels, not special first
	SpecialInlineAfter:  {"special_inline_after", byContainer, 0, 1, false},
	SpecialInlineBefore: {"special_inline_before", byContainer, 2, 5, false},
	SpecialSecondPass:   {"special_second_pass", byContainer, 6, unbounded, false},
	ShortStaticLight:    {"short_static_light", byContainer, 0, 5, false},
	SegmentOwner:        {"segment_owner", byContainer, 9, unbounded, true},
	WideWallNumbers:     {"wide_wall_numbers", byContainer, 13, unbounded, false},
	SegmentProps:        {"segment_props", byContainer, 20, unbounded, true},
	LevelName:           {"level_name", byGame, 14, unbounded, false},
	LevelNameNewline:    {"level_name_newline", byGame, 31, unbounded, false},
	ModelNames:          {"model_names", byGame, 19, unbounded, false},
	PowerupCount:        {"powerup_count", byGame, 25, unbounded, false},
	AIFollowPath:        {"ai_follow_path", byGame, 0, 25, false},
	MatCenterTwoWords:   {"matcen_two_words", byGame, 27, unbounded, false},
	DeltaLights:         {"delta_lights", byGame, 29, unbounded, false},
	ModernTriggers:      {"modern_triggers", byGame, 31, unbounded, false},
	ObjectTriggers:      {"object_triggers", byGame, 33, unbounded, true},
	PowerupMatCenters:   {"powerup_matcens", byGame, 33, unbounded, true},
	FogPresets:          {"fog_presets", byGame, 35, unbounded, true},
}

func (f Feature) String() string {
	if f >= 0 && f < featuresCount {
		return thresholds[f].name
	}
	return "unknown"
}

func (v Version) Has(f Feature) bool {
	t := thresholds[f]
	if t.extended && v.Container < ContainerVersionExtendedMin {
		return false
	}
	value := int(v.Container)
	if t.counter == byGame {
		value = int(v.Game)
	}
	return value >= t.min && value <= t.max
}

// Features lists enabled features of version, used by dumps
func (v Version) Features() []Feature {
	result := make([]Feature, 0, featuresCount)
	for f := Feature(0); f < featuresCount; f++ {
		if v.Has(f) {
			result = append(result, f)
		}
	}
	return result
}

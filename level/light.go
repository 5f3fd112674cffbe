package level

import "github.com/mogaika/descent_level_browser/fixed"

const FogPresetsCount = 4

// DynamicLight is list of per side light deltas applied when Source
// light is destroyed or toggled
type DynamicLight struct {
	Source *Side
	Deltas []LightDelta
}

type LightDelta struct {
	Side        *Side
	VertexLight [VerticesPerSide]uint8
}

// AnimatedLight is flickering light, Mask bits are on/off states per tick
type AnimatedLight struct {
	Side  *Side
	Mask  uint32
	Timer fixed.Fix
	Delay fixed.Fix
}

type FogPreset struct {
	Color   [3]uint8
	Density uint8
}

func (l *Level) AddDynamicLight(source *Side) *DynamicLight {
	dl := &DynamicLight{Source: source}
	source.DynamicLight = dl
	l.DynamicLights = append(l.DynamicLights, dl)
	return dl
}

func (dl *DynamicLight) AddDelta(side *Side, light [VerticesPerSide]uint8) {
	dl.Deltas = append(dl.Deltas, LightDelta{Side: side, VertexLight: light})
}

func (l *Level) AddAnimatedLight(side *Side, mask uint32, timer, delay fixed.Fix) *AnimatedLight {
	al := &AnimatedLight{Side: side, Mask: mask, Timer: timer, Delay: delay}
	side.AnimatedLight = al
	l.AnimatedLights = append(l.AnimatedLights, al)
	return al
}

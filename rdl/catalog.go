package rdl

const (
	ModelNameSize = 13
	// padding name used by engine for unused model slots
	ModelNamePad = "pad.pof"
)

type modelCatalog struct {
	names     []string
	maxModels int
}

// Names returns catalog padded to max models with ModelNamePad
func (c *modelCatalog) Names() []string {
	result := make([]string, c.maxModels)
	for i := range result {
		if i < len(c.names) {
			result[i] = c.names[i]
		} else {
			result[i] = ModelNamePad
		}
	}
	return result
}

var legacyCatalog = &modelCatalog{
	maxModels: 85,
	names: []string{
		"robot09.pof", "robot09s.pof", "robot17.pof", "robot17s.pof",
		"robot22.pof", "robot22s.pof", "robot01.pof", "robot01s.pof",
		"robot23.pof", "robot23s.pof", "robot37.pof", "robot37s.pof",
		"robot10.pof", "robot10s.pof", "robot11.pof", "robot11s.pof",
		"robot14.pof", "robot14s.pof", "robot16.pof", "robot16s.pof",
		"robot19.pof", "robot19s.pof", "robot24.pof", "robot24s.pof",
		"robot25.pof", "robot25s.pof", "robot26.pof", "robot26s.pof",
		"robot27.pof", "robot27s.pof", "robot28.pof", "robot28s.pof",
		"robot29.pof", "robot29s.pof", "robot31.pof", "robot31s.pof",
		"robot32.pof", "robot32s.pof", "robot33.pof", "robot33s.pof",
		"robot35.pof", "robot35s.pof", "robot36.pof", "robot36s.pof",
		"boss01.pof", "boss02.pof", "reactor.pof", "reactor2.pof",
		"exit01.pof", "exit01d.pof", "pship1.pof", "pship1b.pof",
		"laser1-1.pof", "laser11s.pof", "laser12s.pof", "laser1-2.pof",
		"flare.pof", "smissile.pof", "hmissile.pof", "mmissile.pof",
		"fusion.pof", "plasma.pof", "spread.pof", "robot38.pof",
	},
}

var primaryCatalog = &modelCatalog{
	maxModels: 200,
	names: append(append([]string{}, legacyCatalog.names...),
		"robot40.pof", "robot40s.pof", "robot41.pof", "robot41s.pof",
		"robot42.pof", "robot42s.pof", "robot43.pof", "robot43s.pof",
		"robot44.pof", "robot44s.pof", "robot45.pof", "robot45s.pof",
		"robot46.pof", "robot46s.pof", "robot47.pof", "robot47s.pof",
		"robot48.pof", "robot48s.pof", "robot49.pof", "robot49s.pof",
		"robot50.pof", "robot50s.pof", "robot51.pof", "robot51s.pof",
		"robot52.pof", "robot52s.pof", "robot53.pof", "robot53s.pof",
		"robot54.pof", "robot54s.pof", "robot55.pof", "robot55s.pof",
		"boss03.pof", "boss04.pof", "boss05.pof", "boss06.pof",
		"reactor3.pof", "reactor4.pof", "reactor5.pof", "reactor6.pof",
		"exit02.pof", "exit02d.pof", "pship2.pof", "pship2b.pof",
		"merc.pof", "smartmsl.pof", "mega.pof", "flash.pof",
		"guided.pof", "mine.pof", "smartmin.pof", "earthshk.pof",
		"marker.pof", "guidebot.pof", "thief.pof", "helix.pof",
		"phoenix.pof", "omega.pof", "gauss.pof", "superlsr.pof",
	),
}

// extended levels reference the same built-in models as primary ones
var extendedCatalog = primaryCatalog

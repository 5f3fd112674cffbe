package main

import (
	"flag"

	"github.com/mogaika/descent_level_browser/fixed"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/utils"
)

const cubeHalfSize = 10

// corridor builds straight line of connected cubes along Z axis.
// Player starts in first cube, exit is at far end.
func corridor(name string, cubes int) (*level.Level, error) {
	l := level.NewLevel()
	l.Name = name
	l.LevelNumber = 1

	var prev *level.Segment
	for i := 0; i < cubes; i++ {
		seg := l.AddCube(fixed.NewVector(0, 0, float32(i*2*cubeHalfSize)), cubeHalfSize)
		seg.StaticLight = fixed.FixOne
		if prev != nil {
			if err := l.ConnectSegments(prev.Sides[level.SideFront], seg.Sides[level.SideBack]); err != nil {
				return nil, err
			}
		}
		prev = seg
	}
	prev.Sides[level.SideFront].SetExit()
	l.AddObject(level.ObjectPlayer, 0, l.Segments[0])
	return l, l.Validate()
}

func main() {
	var out, name string
	var cubes, container int
	flag.StringVar(&out, "o", "", "Output level file")
	flag.StringVar(&name, "name", "", "Level name, random if empty")
	flag.IntVar(&cubes, "cubes", 1, "Count of cubes in corridor")
	flag.IntVar(&container, "container", rdl.ContainerVersionPrimaryMax, "Container version (1 - 27)")
	flag.Parse()

	logger.Init("", "")

	if out == "" || cubes < 1 {
		flag.PrintDefaults()
		return
	}
	if name == "" {
		var rng utils.RandomNameGenerator
		name = rng.RandomLevelName()
	}

	l, err := corridor(name, cubes)
	if err != nil {
		logger.Log.Fatal(err)
	}
	if err := rdl.WriteFile(out, l, rdl.Version{Container: int32(container)}); err != nil {
		logger.Log.Fatal(err)
	}
	logger.Log.Infof("Level %q with %d cubes saved to %s", name, cubes, out)
}

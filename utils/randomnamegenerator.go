package utils

import (
	"math/rand"
	"strings"

	"github.com/Pallinder/go-randomdata"
)

// Produces stable sequence of unique level names
type RandomNameGenerator map[string]struct{}

func (rng *RandomNameGenerator) RandomName() string {
	if *rng == nil {
		*rng = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := (*rng)[name]; !exists {
			(*rng)[name] = struct{}{}
			return name
		}
	}
}

// Level names are stored in 8bit code page and displayed in upper case by the game
func (rng *RandomNameGenerator) RandomLevelName() string {
	return strings.ToUpper(rng.RandomName())
}

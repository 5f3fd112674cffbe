package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
)

func outputPath(in, outDir string, v rdl.Version) string {
	name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + v.Family().FileExt()
	if outDir == "" {
		outDir = filepath.Dir(in)
	}
	return filepath.Join(outDir, name)
}

func convert(in, out string, v rdl.Version) error {
	l, err := rdl.ReadFile(in)
	if err != nil {
		return err
	}
	return rdl.WriteFile(out, l, v)
}

func main() {
	var outDir, logLevel string
	var container, game int
	flag.StringVar(&outDir, "o", "", "Output directory, input file directory if empty")
	flag.IntVar(&container, "container", rdl.ContainerVersionPrimaryMax, "Target container version (1 - 27)")
	flag.IntVar(&game, "game", 0, "Target game data version, 0 - default of container family")
	flag.StringVar(&logLevel, "log", "info", "Log level")
	flag.Parse()

	logger.Init(logLevel, "")

	if flag.NArg() == 0 {
		logger.Log.Fatal("Provide level files to convert. Use --help if you stuck.")
	}
	v := rdl.Version{Container: int32(container), Game: int16(game)}
	if _, err := rdl.FamilyOf(v.Container); err != nil {
		logger.Log.Fatal(err)
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0777); err != nil {
			logger.Log.Fatal(err)
		}
	}

	failed := 0
	for _, in := range flag.Args() {
		out := outputPath(in, outDir, v)
		log := logger.Log.WithFields(logrus.Fields{"in": in, "out": out})
		if err := convert(in, out, v); err != nil {
			log.Errorf("Conversion failed: %v", err)
			failed++
			continue
		}
		log.Info("Converted")
	}
	if failed != 0 {
		logger.Log.Fatalf("%d of %d levels failed", failed, flag.NArg())
	}
}

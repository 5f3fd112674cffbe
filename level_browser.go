package main

import (
	"flag"

	"github.com/mogaika/descent_level_browser/config"
	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/vfs"
	"github.com/mogaika/descent_level_browser/web"
)

func main() {
	var configPath, addr, dir, webPath string
	var check bool
	flag.StringVar(&configPath, "config", "", "Path to toml config file")
	flag.StringVar(&addr, "i", "", "Address of server, overrides config")
	flag.StringVar(&dir, "dir", "", "Path to folder with level files, overrides config")
	flag.StringVar(&webPath, "web", "web", "Path to folder with web data, empty to disable")
	flag.BoolVar(&check, "parsecheck", false, "Decode and re-encode every level of folder, then exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.Fatal(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if dir != "" {
		cfg.LevelsDir = dir
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	web.DefaultTarget = rdl.Version{
		Container: cfg.Target.ContainerVersion,
		Game:      cfg.Target.GameVersion,
	}
	if _, err := rdl.FamilyOf(web.DefaultTarget.Container); err != nil {
		logger.Log.Fatalf("Invalid target: %v", err)
	}

	d := vfs.NewDirectoryDriver(cfg.LevelsDir)

	if check {
		if failed := parseCheck(d); failed != 0 {
			logger.Log.Fatalf("%d levels failed", failed)
		}
		return
	}

	if err := web.StartServer(cfg.Addr, d, webPath); err != nil {
		logger.Log.Fatal(err)
	}
}

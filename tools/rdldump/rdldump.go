package main

import (
	"bufio"
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/config"
	"github.com/mogaika/descent_level_browser/export"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/utils"
)

func dump(w io.Writer, l *level.Level, format string) error {
	switch format {
	case "yaml":
		return export.NewSummary(l).WriteYAML(w)
	case "json":
		data, err := export.NewSummary(l).JSON()
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "spew":
		_, err := io.WriteString(w, utils.SDump(l))
		return err
	case "glb":
		return export.WriteGLB(w, l)
	}
	return errors.Errorf("Unknown format %q", format)
}

func main() {
	var in, out, format, encoding string
	flag.StringVar(&in, "i", "", "Path to level file")
	flag.StringVar(&out, "o", "", "Output file, stdout if empty")
	flag.StringVar(&format, "f", "yaml", "Output format: yaml, json, spew, glb")
	flag.StringVar(&encoding, "encoding", "", "Code page of level names")
	flag.Parse()

	// stdout may be dump itself
	logger.Setup(logger.Log, os.Stderr, "", "")

	if in == "" {
		flag.PrintDefaults()
		return
	}
	if encoding != "" {
		if err := config.SetEncoding(encoding); err != nil {
			logger.Log.Fatal(err)
		}
	}

	l, err := rdl.ReadFile(in)
	if err != nil {
		logger.Log.Fatal(err)
	}

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			logger.Log.Fatal(err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := dump(bw, l, format); err != nil {
		logger.Log.Fatal(err)
	}
	if err := bw.Flush(); err != nil {
		logger.Log.Fatal(err)
	}
}

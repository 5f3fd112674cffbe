package main

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/status"
	"github.com/mogaika/descent_level_browser/vfs"
)

// checkLevel decodes level, encodes it with source version and decodes
// again. Second encoding must match the first one byte to byte.
func checkLevel(data []byte) error {
	l, err := rdl.Decode(data)
	if err != nil {
		return err
	}
	v := rdl.LevelVersion(l)
	first, err := rdl.Encode(l, v)
	if err != nil {
		return errors.Wrapf(err, "Failed to encode")
	}
	l2, err := rdl.Decode(first)
	if err != nil {
		return errors.Wrapf(err, "Failed to decode own output")
	}
	second, err := rdl.Encode(l2, v)
	if err != nil {
		return errors.Wrapf(err, "Failed to encode twice")
	}
	if !bytes.Equal(first, second) {
		return errors.Errorf("Re-encoding is not stable (%d vs %d bytes)", len(first), len(second))
	}
	if len(l2.Segments) != len(l.Segments) || len(l2.Objects) != len(l.Objects) {
		return errors.Errorf("Lost entities: %d/%d segments, %d/%d objects",
			len(l2.Segments), len(l.Segments), len(l2.Objects), len(l.Objects))
	}
	return nil
}

func parseCheck(rootfs vfs.Directory) int {
	names, err := vfs.ListByExt(rootfs, rdl.FamilyLegacy.FileExt(), rdl.FamilyPrimary.FileExt())
	if err != nil {
		logger.Log.Fatal(err)
	}

	failed := 0
	for i, name := range names {
		status.Progress(float32(i)/float32(len(names)), "Checking %s", name)

		log := logger.Log.WithFields(logrus.Fields{"level": name})
		data, err := vfs.ReadFile(rootfs, name)
		if err == nil {
			err = checkLevel(data)
		}
		if err != nil {
			log.Errorf("Check failed: %v", err)
			failed++
			continue
		}
		log.Debug("Ok")
	}
	logger.Log.Infof("Checked %d levels, %d failed", len(names), failed)
	return failed
}

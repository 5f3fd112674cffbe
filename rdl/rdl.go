// Package rdl reads and writes mine level files of legacy (.rdl),
// primary and extended (.rl2) families.
package rdl

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/utils"
)

// DetectFamily peeks header without moving stream position
func DetectFamily(r io.ReadSeeker) (Family, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to get stream position")
	}
	defer r.Seek(pos, io.SeekStart)

	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, wrapStreamError(err, "Failed to read header")
	}
	if string(header[:4]) != Magic {
		return 0, errors.Wrapf(ErrBadMagic, "got %s", utils.DumpToOneLineString(header[:4]))
	}
	return FamilyOf(int32(binary.LittleEndian.Uint32(header[4:])))
}

// Read decodes level from current position of stream. Stream is not closed.
func Read(r io.ReadSeeker) (*level.Level, error) {
	family, err := DetectFamily(r)
	if err != nil {
		return nil, err
	}
	return newReader(r, strategyFor(family)).read()
}

func Decode(data []byte) (*level.Level, error) {
	return Read(utils.NewSeekBuffer(data))
}

func ReadFile(path string) (*level.Level, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	defer f.Close()

	l, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read level %q", path)
	}
	return l, nil
}

// resolveVersion fills default game data version of family
func resolveVersion(v Version) (Version, familyStrategy, error) {
	family, err := FamilyOf(v.Container)
	if err != nil {
		return v, nil, err
	}
	if v.Game == 0 {
		v.Game = familyRanges[family].defaultGame
	}
	strategy := strategyFor(family)
	if err := strategy.checkVersion(v); err != nil {
		return v, nil, err
	}
	return v, strategy, nil
}

// Write encodes level with target version. Zero game version selects
// default of target family. On error stream content is undefined.
func Write(w io.WriteSeeker, l *level.Level, v Version) error {
	v, strategy, err := resolveVersion(v)
	if err != nil {
		return err
	}
	return newWriter(w, strategy, l, v).write()
}

func Encode(l *level.Level, v Version) ([]byte, error) {
	buf := utils.NewSeekBuffer(nil)
	if err := Write(buf, l, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteFile(path string, l *level.Level, v Version) error {
	data, err := Encode(l, v)
	if err != nil {
		return errors.Wrapf(err, "Failed to encode level %q", path)
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	return nil
}

// LevelVersion returns version level was decoded from
func LevelVersion(l *level.Level) Version {
	return Version{Container: l.ContainerVersion, Game: l.GameVersion}
}

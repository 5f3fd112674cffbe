package rdl

import (
	"io"

	"github.com/pkg/errors"
)

// Format errors, returned wrapped. Compare with errors.Is.
var (
	ErrBadMagic             = errors.New("bad level file magic")
	ErrUnsupportedVersion   = errors.New("unsupported level container version")
	ErrBadGameDataSignature = errors.New("bad game data signature")
	ErrGameDataVersion      = errors.New("unsupported game data version")
	ErrUnknownObjectVariant = errors.New("unknown object variant")
	ErrTruncated            = errors.New("level file is truncated")
)

func wrapStreamError(err error, format string, args ...interface{}) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return errors.Wrapf(ErrTruncated, format+": %v", append(args, err)...)
	}
	return errors.Wrapf(err, format, args...)
}

// IsFormatError reports if err is caused by malformed or unsupported level data
func IsFormatError(err error) bool {
	for _, target := range []error{ErrBadMagic, ErrUnsupportedVersion, ErrBadGameDataSignature,
		ErrGameDataVersion, ErrUnknownObjectVariant, ErrTruncated} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

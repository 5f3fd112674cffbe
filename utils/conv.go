package utils

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"

	"github.com/mogaika/descent_level_browser/config"
)

func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	// single byte code pages map every byte, decoding never fails
	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		return string(bs[0:n])
	}

	return string(s)
}

func BytesStringLength(bs []byte) int {
	if l := bytes.IndexByte(bs, 0); l == -1 {
		return len(bs)
	} else {
		return l
	}
}

func StringToBytesBuffer(s string, bufSize int, nilTerminate bool) ([]byte, error) {
	bs, err := StringToBytes(s, nilTerminate)
	if err != nil {
		return nil, err
	}
	if len(bs) > bufSize {
		return nil, errors.Errorf("String %q does not fit into %d bytes", s, bufSize)
	}
	r := make([]byte, bufSize)
	copy(r, bs)
	return r, nil
}

func StringToBytes(s string, nilTerminate bool) ([]byte, error) {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to encode %q as %v", s, config.GetEncoding())
	}

	if nilTerminate {
		bs = append(bs, 0)
	}
	return bs, nil
}

package web

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/descent_level_browser/export"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/status"
	"github.com/mogaika/descent_level_browser/utils"
	"github.com/mogaika/descent_level_browser/vfs"
	"github.com/mogaika/descent_level_browser/webutils"
)

var levelExts = []string{rdl.FamilyLegacy.FileExt(), rdl.FamilyPrimary.FileExt()}

type levelInfo struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Family string `json:"family,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeLevelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		webutils.WriteErrorStatus(w, http.StatusNotFound, err)
	case rdl.IsFormatError(err):
		webutils.WriteErrorStatus(w, http.StatusUnprocessableEntity, err)
	default:
		webutils.WriteError(w, err)
	}
}

func openLevel(name string) (*level.Level, error) {
	f, err := vfs.DirectoryGetFile(ServerDirectory, name)
	if err != nil {
		return nil, err
	}
	r, err := vfs.OpenFileAndGetReader(f, true)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := rdl.Read(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read level %q", name)
	}
	return l, nil
}

func levelFamily(name string) (rdl.Family, int64, error) {
	f, err := vfs.DirectoryGetFile(ServerDirectory, name)
	if err != nil {
		return 0, 0, err
	}
	r, err := vfs.OpenFileAndGetReader(f, true)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	family, err := rdl.DetectFamily(r)
	return family, f.Size(), err
}

func HandlerAjaxLevels(w http.ResponseWriter, r *http.Request) {
	names, err := vfs.ListByExt(ServerDirectory, levelExts...)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	result := make([]levelInfo, 0, len(names))
	for _, name := range names {
		info := levelInfo{Name: name}
		family, size, err := levelFamily(name)
		info.Size = size
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Family = family.String()
		}
		result = append(result, info)
	}
	webutils.WriteJson(w, result)
}

func HandlerAjaxLevel(w http.ResponseWriter, r *http.Request) {
	l, err := openLevel(mux.Vars(r)["file"])
	if err != nil {
		writeLevelError(w, err)
		return
	}
	webutils.WriteJson(w, export.NewSummary(l))
}

func HandlerYamlLevel(w http.ResponseWriter, r *http.Request) {
	l, err := openLevel(mux.Vars(r)["file"])
	if err != nil {
		writeLevelError(w, err)
		return
	}
	data, err := export.NewSummary(l).YAML()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteText(w, "text/yaml; charset=utf-8", data)
}

func HandlerDumpLevel(w http.ResponseWriter, r *http.Request) {
	l, err := openLevel(mux.Vars(r)["file"])
	if err != nil {
		writeLevelError(w, err)
		return
	}
	webutils.WriteText(w, "text/plain; charset=utf-8", []byte(utils.SDump(l)))
}

func HandlerGltfLevel(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	l, err := openLevel(file)
	if err != nil {
		writeLevelError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteGLB(&buf, l); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, strings.TrimSuffix(file, filepath.Ext(file))+".glb")
}

// parseTarget reads container version from route and optional game version from query
func parseTarget(r *http.Request) (rdl.Version, error) {
	v := DefaultTarget
	if s, ok := mux.Vars(r)["version"]; ok {
		container, err := strconv.Atoi(s)
		if err != nil {
			return v, errors.Errorf("Container version %q is not integer", s)
		}
		v = rdl.Version{Container: int32(container)}
	}
	if s := r.URL.Query().Get("game"); s != "" {
		game, err := strconv.Atoi(s)
		if err != nil {
			return v, errors.Errorf("Game version %q is not integer", s)
		}
		v.Game = int16(game)
	}
	return v, nil
}

func HandlerConvertLevel(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	v, err := parseTarget(r)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	l, err := openLevel(file)
	if err != nil {
		writeLevelError(w, err)
		return
	}
	data, err := rdl.Encode(l, v)
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	name := strings.TrimSuffix(file, filepath.Ext(file)) + v.Family().FileExt()
	status.Info("Converted %s to %s (container %d)", file, name, v.Container)
	webutils.WriteFile(w, bytes.NewReader(data), name)
}

func HandlerUploadLevel(w http.ResponseWriter, r *http.Request) {
	file := mux.Vars(r)["file"]
	if err := vfs.ValidName(file); err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	data, err := webutils.ReadFormFile(r, "data")
	if err != nil {
		webutils.WriteErrorStatus(w, http.StatusBadRequest, err)
		return
	}
	// only decodable levels are stored
	l, err := rdl.Decode(data)
	if err != nil {
		writeLevelError(w, err)
		return
	}
	if err := vfs.WriteFile(ServerDirectory, file, data); err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Info("Uploaded level %s (%d segments)", file, len(l.Segments))
	webutils.WriteJson(w, export.NewSummary(l))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatusWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warnf("[web] websocket upgrade failed: %v", err)
		return
	}
	status.NewClient(conn)
}

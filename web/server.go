package web

import (
	"net/http"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/descent_level_browser/logger"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/vfs"
)

var ServerDirectory vfs.Directory

// DefaultTarget used by conversion when route has no version
var DefaultTarget = rdl.Version{Container: rdl.ContainerVersionPrimaryMax}

func NewRouter(d vfs.Directory, webPath string) http.Handler {
	ServerDirectory = d

	r := mux.NewRouter()
	r.HandleFunc("/json/levels", HandlerAjaxLevels)
	r.HandleFunc("/json/level/{file}", HandlerAjaxLevel)
	r.HandleFunc("/yaml/level/{file}", HandlerYamlLevel)
	r.HandleFunc("/dump/level/{file}", HandlerDumpLevel)
	r.HandleFunc("/gltf/level/{file}", HandlerGltfLevel)
	r.HandleFunc("/convert/level/{file}/{version}", HandlerConvertLevel)
	r.HandleFunc("/convert/level/{file}", HandlerConvertLevel)
	r.HandleFunc("/upload/level/{file}", HandlerUploadLevel).Methods(http.MethodPost)
	r.HandleFunc("/ws/status", HandlerStatusWs)

	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	}

	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	h = handlers.CompressHandler(h)
	h = handlers.LoggingHandler(logger.Log.Writer(), h)
	return h
}

func StartServer(addr string, d vfs.Directory, webPath string) error {
	h := NewRouter(d, webPath)
	logger.Log.Infof("[web] Starting server %v", addr)
	return http.ListenAndServe(addr, h)
}

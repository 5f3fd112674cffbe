package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mogaika/descent_level_browser/export"
	"github.com/mogaika/descent_level_browser/level"
	"github.com/mogaika/descent_level_browser/rdl"
	"github.com/mogaika/descent_level_browser/vfs"
)

func newTestServer(t *testing.T) (*httptest.Server, *vfs.MemoryDirectory) {
	t.Helper()

	data, err := rdl.Encode(level.NewCubeLevel("cube"), rdl.Version{Container: 1})
	if err != nil {
		t.Fatal(err)
	}
	d := vfs.NewMemoryDirectory("levels")
	for name, content := range map[string][]byte{
		"cube.rdl":   data,
		"broken.rl2": []byte("LVLP\x63\x00\x00\x00"),
		"notes.txt":  []byte("text"),
	} {
		if err := vfs.WriteFile(d, name, content); err != nil {
			t.Fatal(err)
		}
	}

	server := httptest.NewServer(NewRouter(d, ""))
	t.Cleanup(server.Close)
	return server, d
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func TestLevelsList(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := get(t, server.URL+"/json/levels")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var list []levelInfo
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("list %+v", list)
	}
	if list[0].Name != "broken.rl2" || list[0].Error == "" {
		t.Errorf("broken %+v", list[0])
	}
	if list[1].Name != "cube.rdl" || list[1].Family != "legacy" || list[1].Size == 0 {
		t.Errorf("cube %+v", list[1])
	}
}

func TestLevelViews(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := get(t, server.URL+"/json/level/cube.rdl")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var s export.Summary
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "cube" || s.Counts.Segments != 1 || s.Version.Family != "legacy" {
		t.Errorf("summary %+v", s)
	}

	resp, body = get(t, server.URL+"/yaml/level/cube.rdl")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "name: cube") {
		t.Errorf("yaml %d: %s", resp.StatusCode, body)
	}

	resp, body = get(t, server.URL+"/dump/level/cube.rdl")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Segments") {
		t.Errorf("dump %d", resp.StatusCode)
	}

	resp, body = get(t, server.URL+"/gltf/level/cube.rdl")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("glTF")) {
		t.Errorf("gltf %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "cube.glb") {
		t.Errorf("gltf disposition %q", cd)
	}
}

func TestLevelErrors(t *testing.T) {
	server, _ := newTestServer(t)

	for _, tc := range []struct {
		url    string
		status int
	}{
		{"/json/level/missing.rdl", http.StatusNotFound},
		{"/json/level/broken.rl2", http.StatusUnprocessableEntity},
		{"/convert/level/cube.rdl/99", http.StatusBadRequest},
		{"/convert/level/cube.rdl/abc", http.StatusBadRequest},
		{"/convert/level/cube.rdl/8?game=99", http.StatusBadRequest},
	} {
		resp, body := get(t, server.URL+tc.url)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status %d, want %d", tc.url, resp.StatusCode, tc.status)
			continue
		}
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			t.Errorf("%s: error body %q", tc.url, body)
		}
	}
}

func TestConvertLevel(t *testing.T) {
	server, _ := newTestServer(t)

	for _, tc := range []struct {
		url       string
		container int32
		game      int16
		ext       string
	}{
		{"/convert/level/cube.rdl", rdl.ContainerVersionPrimaryMax, 32, ".rl2"},
		{"/convert/level/cube.rdl/1", 1, 25, ".rdl"},
		{"/convert/level/cube.rdl/5?game=27", 5, 27, ".rl2"},
		{"/convert/level/cube.rdl/20", 20, 40, ".rl2"},
	} {
		resp, body := get(t, server.URL+tc.url)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d: %s", tc.url, resp.StatusCode, body)
			continue
		}
		if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "cube"+tc.ext) {
			t.Errorf("%s: disposition %q", tc.url, cd)
		}
		l, err := rdl.Decode(body)
		if err != nil {
			t.Errorf("%s: %v", tc.url, err)
			continue
		}
		if l.ContainerVersion != tc.container || l.GameVersion != tc.game {
			t.Errorf("%s: version %d/%d", tc.url, l.ContainerVersion, l.GameVersion)
		}
	}
}

func upload(t *testing.T, url string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", "level")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestUploadLevel(t *testing.T) {
	server, d := newTestServer(t)

	data, err := rdl.Encode(level.NewCubeLevel("uploaded"), rdl.Version{Container: 8})
	if err != nil {
		t.Fatal(err)
	}
	if resp := upload(t, server.URL+"/upload/level/new.rl2", data); resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status %d", resp.StatusCode)
	}
	stored, err := vfs.ReadFile(d, "new.rl2")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, data) {
		t.Errorf("stored content differs")
	}

	if resp := upload(t, server.URL+"/upload/level/bad.rl2", []byte("garbage")); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("garbage upload status %d", resp.StatusCode)
	}
	if _, err := vfs.ReadFile(d, "bad.rl2"); err == nil {
		t.Errorf("undecodable level stored")
	}

	resp, _ := get(t, server.URL+"/upload/level/new.rl2")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET upload status %d", resp.StatusCode)
	}
}

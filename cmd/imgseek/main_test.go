package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"imgseek/internal/datadir"
	"imgseek/internal/history"
	"imgseek/internal/imagefile"
)

// fakeServer mimics the search server's upload, search and history endpoints.
type fakeServer struct {
	*httptest.Server
	uploads   atomic.Int32
	searches  atomic.Int32
	uploadErr string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		fs.uploads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if fs.uploadErr != "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": fs.uploadErr})
			return
		}
		_, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":           true,
			"filename":          "20261019_" + hdr.Filename,
			"original_filename": hdr.Filename,
			"image_id":          7,
		})
	})

	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		fs.searches.Add(1)
		var req struct {
			Filename string `json:"filename"`
			K        int    `json:"k"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5, req.K)
		assert.Equal(t, "20261019_query.png", req.Filename)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"count":   2,
			"results": []map[string]interface{}{
				{"filename": "r1.jpg", "path": "/uploads/r1.jpg", "distance": 0.5},
				{"filename": "r2.jpg", "path": "/uploads/r2.jpg", "distance": 1.25},
			},
		})
	})

	mux.HandleFunc("GET /api/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": 2, "filename": "20261019_beach.png", "original_filename": "beach.png", "upload_date": "2026-10-19 09:30:00", "file_size": 2048},
			{"id": 1, "filename": "20261018_cat.jpg", "original_filename": "cat.jpg", "upload_date": "2026-10-18 17:02:11", "file_size": 512},
		})
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

// setupEnv isolates the data directory and environment for one test.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(datadir.EnvVar, dir)
	t.Setenv(datadir.EnvFileEnvVar, filepath.Join(dir, "missing.env"))
	t.Setenv("IMGSEEK_SERVER_URL", "")
	t.Setenv("IMGSEEK_LOG_LEVEL", "")
	t.Setenv("IMGSEEK_TIMEOUT", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestSearchCommand_Table(t *testing.T) {
	dir := setupEnv(t)
	srv := newFakeServer(t)
	img := writePNG(t, t.TempDir(), "query.png")

	out, err := execute(t, "search", img, "--server", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "Query: query.png")
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "r1.jpg")
	assert.Contains(t, out, "95.0%")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "87.5%")
	assert.Contains(t, out, "1.2500")
	assert.Equal(t, int32(1), srv.uploads.Load())
	assert.Equal(t, int32(1), srv.searches.Load())

	_, err = os.Stat(filepath.Join(dir, "history.db"))
	assert.NoError(t, err, "search should be recorded in local history")
}

func TestSearchCommand_JSON(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)
	img := writePNG(t, t.TempDir(), "query.png")

	out, err := execute(t, "search", img, "--server", srv.URL, "--output", "json")
	require.NoError(t, err)

	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "query.png", report.Query)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Results[0].Rank)
	assert.Equal(t, srv.URL+"/uploads/r1.jpg", report.Results[0].URL)
	assert.InDelta(t, 95.0, report.Results[0].Similarity, 1e-9)
	assert.InDelta(t, 1.25, report.Results[1].Distance, 1e-9)
}

func TestSearchCommand_YAML(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)
	img := writePNG(t, t.TempDir(), "query.png")

	out, err := execute(t, "search", img, "-s", srv.URL, "-o", "yaml")
	require.NoError(t, err)

	var report searchReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 2)
	assert.Equal(t, "r2.jpg", report.Results[1].Filename)
	assert.InDelta(t, 87.5, report.Results[1].Similarity, 1e-9)
}

func TestSearchCommand_UploadRejected(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)
	srv.uploadErr = "Invalid file type"
	img := writePNG(t, t.TempDir(), "query.png")

	_, err := execute(t, "search", img, "--server", srv.URL)
	require.Error(t, err)
	assert.Equal(t, "Invalid file type", err.Error())
	assert.Equal(t, int32(0), srv.searches.Load())
}

func TestSearchCommand_NotAnImage(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0600))

	_, err := execute(t, "search", path, "--server", srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imagefile.ErrNotImage))
	assert.Equal(t, int32(0), srv.uploads.Load())
}

func TestSearchCommand_BadFlags(t *testing.T) {
	setupEnv(t)
	img := writePNG(t, t.TempDir(), "query.png")

	_, err := execute(t, "search", img, "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, err = execute(t, "search", img, "--server", "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = execute(t, "search")
	assert.Error(t, err)
}

func TestHistoryCommand_Local(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)
	img := writePNG(t, t.TempDir(), "query.png")

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No searches recorded yet.")

	_, err = execute(t, "search", img, "--server", srv.URL)
	require.NoError(t, err)

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "query.png")
	assert.Contains(t, out, "r1.jpg (95.0%)")

	out, err = execute(t, "history", "-o", "json")
	require.NoError(t, err)
	var searches []history.Search
	require.NoError(t, json.Unmarshal([]byte(out), &searches))
	require.Len(t, searches, 1)
	assert.Equal(t, "20261019_query.png", searches[0].ServerFile)
	assert.Len(t, searches[0].Results, 2)

	out, err = execute(t, "history", "prune", "--keep", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 searches")
}

func TestHistoryCommand_Remote(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)

	out, err := execute(t, "history", "--remote", "--server", srv.URL, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "beach.png")
	assert.Contains(t, out, "2.00 KB")
	assert.NotContains(t, out, "cat.jpg")
}

func TestHistoryCommand_Disabled(t *testing.T) {
	dir := setupEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client.json"), []byte(`{"history_enabled": false}`), 0600))

	_, err := execute(t, "history")
	assert.ErrorIs(t, err, errHistoryDisabled)
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "imgseek dev")
	assert.Contains(t, out, "Go version:")

	out, err = execute(t, "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestHistoryShowCommand(t *testing.T) {
	setupEnv(t)
	srv := newFakeServer(t)
	img := writePNG(t, t.TempDir(), "query.png")

	_, err := execute(t, "search", img, "--server", srv.URL)
	require.NoError(t, err)

	out, err := execute(t, "history", "-o", "json")
	require.NoError(t, err)
	var searches []history.Search
	require.NoError(t, json.Unmarshal([]byte(out), &searches))
	require.Len(t, searches, 1)
	id := searches[0].ID

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = execute(t, "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Query: query.png")
	assert.Contains(t, out, "20261019_query.png")
	assert.Contains(t, out, "r2.jpg")
	assert.Contains(t, out, "87.5%")

	out, err = execute(t, "history", "show", id, "-o", "yaml")
	require.NoError(t, err)
	var got history.Search
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, id, got.ID)
	assert.Len(t, got.Results, 2)

	_, err = execute(t, "history", "show", "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no search with ID no-such-id")
}

func TestConfigInitCommand(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "client.json")

	out, err := execute(t, "config", "init", "--server", "http://gpu-box:5000")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "http://gpu-box:5000", saved["server_url"])

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "show", "-o", "json")
	require.NoError(t, err)
	var shown map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "http://gpu-box:5000", shown["server_url"], "the saved file is read back")
}

func TestDataDirFlagBeatsEnvironment(t *testing.T) {
	setupEnv(t)
	flagDir := filepath.Join(t.TempDir(), "flag-data")

	out, err := execute(t, "config", "show", "--data-dir", flagDir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(flagDir, "client.json"))
}

func TestDataDirFromWorkingDirEnvFile(t *testing.T) {
	setupEnv(t)
	t.Setenv(datadir.EnvFileEnvVar, "")
	t.Setenv(datadir.EnvVar, "")
	os.Unsetenv(datadir.EnvVar)

	cwd := t.TempDir()
	t.Chdir(cwd)
	fromFile := filepath.Join(t.TempDir(), "dotenv-data")
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ".env"), []byte(datadir.EnvVar+"="+fromFile+"\n"), 0600))

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(fromFile, "client.json"))
}

func TestDataDirConfigValueBelowEnvironment(t *testing.T) {
	dir := setupEnv(t)
	other := filepath.Join(t.TempDir(), "from-config")
	cfgPath := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"data_dir": "`+other+`"}`), 0600))

	out, err := execute(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, dir)
	assert.NotContains(t, out, other)
}

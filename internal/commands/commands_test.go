package commands

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newTestApp(t *testing.T) (*cli.App, *bytes.Buffer) {
	t.Helper()

	exiter := cli.OsExiter
	errWriter := cli.ErrWriter
	cli.OsExiter = func(int) {}
	cli.ErrWriter = &bytes.Buffer{}
	t.Cleanup(func() {
		cli.OsExiter = exiter
		cli.ErrWriter = errWriter
	})

	var out bytes.Buffer
	app := NewApp("test", "now", "abc123")
	app.Writer = &out
	return app, &out
}

func writeConfig(t *testing.T, dir, cascadeURL string) string {
	t.Helper()

	body := fmt.Sprintf(`data_dir: %s
log:
  level: error
  format: text
vision:
  face:
    cascade_url: %s
gender:
  mode: heuristic
recommender:
  api_key: test
`, dir, cascadeURL)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewApp(t *testing.T) {
	app := NewApp("1.2.3", "2026-01-01", "deadbeef")

	assert.Equal(t, "styleai", app.Name)
	assert.Equal(t, "1.2.3", app.Version)
	assert.Equal(t, "deadbeef", app.Metadata["git_commit"])

	names := make([]string, 0, len(app.Commands))
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"serve", "analyze", "provision"}, names)
	assert.NotNil(t, app.Action)
}

func TestProvision_FetchesCascade(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("cascade-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL+"/facefinder")

	app, out := newTestApp(t)
	require.NoError(t, app.Run([]string{"styleai", "provision", "--config", cfgPath}))

	assert.Contains(t, out.String(), "facefinder")
	assert.Contains(t, out.String(), "fetched")
	assert.FileExists(t, filepath.Join(dir, "models", "facefinder"))

	out.Reset()
	require.NoError(t, app.Run([]string{"styleai", "--config", cfgPath, "provision"}))
	assert.Contains(t, out.String(), "present")
	assert.Equal(t, 1, hits)
}

func TestProvision_ReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL+"/missing")

	app, out := newTestApp(t)
	err := app.Run([]string{"styleai", "provision", "-c", cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be provisioned")
	assert.Contains(t, out.String(), "FAILED")
}

func TestAnalyze_RequiresPhoto(t *testing.T) {
	app, _ := newTestApp(t)

	err := app.Run([]string{"styleai", "analyze", "--gender", "Male"})
	require.Error(t, err)

	exitErr, ok := err.(cli.ExitCoder)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.ExitCode())
}

func TestAnalyze_InvalidGender(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://127.0.0.1:1/facefinder")
	photo := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("not an image"), 0644))

	app, _ := newTestApp(t)
	err := app.Run([]string{"styleai", "analyze", "-c", cfgPath, "--gender", "Other", photo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gender must be Male or Female.")
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	app, _ := newTestApp(t)

	err := app.Run([]string{"styleai", "provision", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

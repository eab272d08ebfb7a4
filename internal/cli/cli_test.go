package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/imageset/internal/backend/batch/batchtest"
	"github.com/jo-hoe/imageset/internal/backend/imageprocessing"
	"github.com/jo-hoe/imageset/internal/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	dir        string
	configPath string
	dbPath     string
	outputPath string
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "images.db"),
		outputPath: filepath.Join(dir, "random_image.png"),
	}

	config := fmt.Sprintf(`logLevel: error
database:
  type: sqlite
  connectionString: %q
  createSchema: true
source:
  baseUrl: %q
downloadDir: %q
maxImages: 2
outputPath: %q
`, env.dbPath, baseURL+"/", filepath.Join(dir, "image_sets"), env.outputPath)
	require.NoError(t, os.WriteFile(env.configPath, []byte(config), 0644))
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func newArchiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	batchtest.WriteArchive(t, path, batchtest.Member{
		Name: "cifar-10-batches-py/test_batch",
		Body: batchtest.Pickle(batchtest.Batch{
			Data: [][]byte{
				batchtest.Pixels(imageprocessing.RawSize, 1),
				batchtest.Pixels(imageprocessing.RawSize, 2),
				batchtest.Pixels(imageprocessing.RawSize, 3),
			},
			Filenames: []string{"a.png", "b.png", "c.png"},
			Label:     batchtest.Label("testing batch 1 of 1"),
		}),
	})
	archive, err := os.ReadFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cifar.html":
			_, _ = w.Write([]byte(`<a href="cifar-10-python.tar.gz">python</a>`))
		case "/cifar-10-python.tar.gz":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSchemaCreateAndDrop(t *testing.T) {
	env := newTestEnv(t, "http://unused")

	out, err := env.run(t, "schema", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Table 'tb_images' created successfully (or already exists).")

	out, err = env.run(t, "schema", "drop")
	require.NoError(t, err)
	assert.Contains(t, out, "Table 'tb_images' dropped successfully.")
}

func TestIngestThenRandom(t *testing.T) {
	srv := newArchiveServer(t)
	env := newTestEnv(t, srv.URL)

	out, err := env.run(t, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Extracted 3 images, inserted 2 from "+srv.URL+"/cifar-10-python.tar.gz")

	out, err = env.run(t, "random")
	require.NoError(t, err)
	assert.Contains(t, out, "Batch Name: testing batch 1 of 1")
	assert.Contains(t, out, "stored at "+env.outputPath)

	data, err := os.ReadFile(env.outputPath)
	require.NoError(t, err)
	assert.True(t, imageprocessing.HasPngSignature(data))
}

func TestIngest_MaxImagesFlag(t *testing.T) {
	srv := newArchiveServer(t)
	env := newTestEnv(t, srv.URL)

	out, err := env.run(t, "ingest", "--max-images", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 1 from")
}

func TestRandom_OutputFlagAndEmptyStore(t *testing.T) {
	env := newTestEnv(t, "http://unused")
	custom := filepath.Join(env.dir, "custom.png")

	out, err := env.run(t, "random", "--output", custom)
	require.NoError(t, err)
	assert.Contains(t, out, "No images found")
	_, statErr := os.Stat(custom)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIngest_FailureMapsExitCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	env := newTestEnv(t, srv.URL)

	_, err := env.run(t, "ingest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrSourceUnavailable), "got %v", err)
	assert.Equal(t, 10, failure.ExitCode(err))
}

func TestMissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "schema", "create"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to load config"))
	assert.Equal(t, 1, failure.ExitCode(err))
}

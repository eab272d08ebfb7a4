package fetcher

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jo-hoe/imageset/internal/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html>
	<body>
		<a href="cifar-10-python.tar.gz">CIFAR-10 python version</a>
		<a href="cifar-10-matlab.tar.gz">CIFAR-10 Matlab version</a>
		<a>no href</a>
	</body>
</html>`

func newListingServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cifar.html" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveSourceURL_PicksPythonArchive(t *testing.T) {
	srv := newListingServer(t, listingHTML, http.StatusOK)
	r := NewResolver(srv.URL+"/", "cifar.html", "python.tar.gz", WithRand(rand.New(rand.NewPCG(1, 1))))

	for i := 0; i < 20; i++ {
		fullURL, href, err := r.ResolveSourceURL(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cifar-10-python.tar.gz", href)
		assert.Equal(t, srv.URL+"/cifar-10-python.tar.gz", fullURL)
	}
}

func TestResolveSourceURL_ResolvesAgainstListingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/~kriz/cifar.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<a href="cifar-10-python.tar.gz">python</a><a href="/mirror/cifar-100-python.tar.gz">abs</a>`))
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name    string
		baseURL string
		suffix  string
		want    string
	}{
		{"base with trailing slash", srv.URL + "/~kriz/", "10-python.tar.gz", srv.URL + "/~kriz/cifar-10-python.tar.gz"},
		{"base without trailing slash", srv.URL + "/~kriz", "10-python.tar.gz", srv.URL + "/~kriz/cifar-10-python.tar.gz"},
		{"root relative href", srv.URL + "/~kriz", "100-python.tar.gz", srv.URL + "/mirror/cifar-100-python.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fullURL, _, err := NewResolver(tt.baseURL, "cifar.html", tt.suffix).ResolveSourceURL(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, fullURL)
		})
	}
}

func TestResolveSourceURL_ChoosesAmongCandidates(t *testing.T) {
	body := `<a href="a-python.tar.gz">a</a><a href="b-python.tar.gz">b</a>`
	srv := newListingServer(t, body, http.StatusOK)
	r := NewResolver(srv.URL+"/", "cifar.html", "", WithRand(rand.New(rand.NewPCG(5, 5))))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		_, href, err := r.ResolveSourceURL(context.Background())
		require.NoError(t, err)
		seen[href] = true
	}
	assert.Len(t, seen, 2)
}

func TestResolveSourceURL_NoCandidates(t *testing.T) {
	srv := newListingServer(t, `<a href="cifar-10-matlab.tar.gz">m</a>`, http.StatusOK)
	r := NewResolver(srv.URL+"/", "cifar.html", "python.tar.gz")

	_, _, err := r.ResolveSourceURL(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrNoCandidates), "got %v", err)
}

func TestResolveSourceURL_SourceUnavailable(t *testing.T) {
	srv := newListingServer(t, "down", http.StatusServiceUnavailable)
	r := NewResolver(srv.URL+"/", "cifar.html", "python.tar.gz")

	_, _, err := r.ResolveSourceURL(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrSourceUnavailable), "got %v", err)
}

func TestResolveSourceURL_Unreachable(t *testing.T) {
	srv := newListingServer(t, listingHTML, http.StatusOK)
	base := srv.URL + "/"
	srv.Close()

	_, _, err := NewResolver(base, "cifar.html", "").ResolveSourceURL(context.Background())
	assert.True(t, errors.Is(err, failure.ErrSourceUnavailable), "got %v", err)
}

func TestFetchArchive_DownloadsOnceThenCacheHit(t *testing.T) {
	var hits atomic.Int32
	payload := strings.Repeat("archive-bytes-", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)

	dir := filepath.Join(t.TempDir(), "image_sets")
	d := NewDownloader(dir, srv.Client())

	first, err := d.FetchArchive(context.Background(), srv.URL+"/file.tar.gz", "file.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file.tar.gz"), first)

	second, err := d.FetchArchive(context.Background(), srv.URL+"/file.tar.gz", "file.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestFetchArchive_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	d := NewDownloader(t.TempDir(), srv.Client())
	_, err := d.FetchArchive(context.Background(), srv.URL+"/missing.tar.gz", "missing.tar.gz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrDownloadFailed), "got %v", err)
}

func TestFetchArchive_StripsDirectoryFromLocalName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	path, err := NewDownloader(dir, srv.Client()).FetchArchive(context.Background(), srv.URL, "../../escape.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.tar.gz"), path)
}

func TestCopyChunked(t *testing.T) {
	var sb strings.Builder
	n, err := copyChunked(&sb, strings.NewReader(strings.Repeat("a", chunkSize*2+5)))
	require.NoError(t, err)
	assert.Equal(t, int64(chunkSize*2+5), n)
	assert.Equal(t, chunkSize*2+5, sb.Len())
}

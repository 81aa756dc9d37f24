package wikimedia

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "PortraitTest/1.0"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	mux := http.NewServeMux()

	mux.HandleFunc("/wikidata/api.php", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != testUserAgent {
			http.Error(w, "missing user agent", http.StatusForbidden)
			return
		}
		q := r.URL.Query()
		id, props := q.Get("ids"), q.Get("props")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case id == "Q1" && props == "claims":
			w.Write([]byte(`{"entities":{"Q1":{"id":"Q1","claims":{"P18":[
				{"mainsnak":{"datavalue":{"value":"Roger Federer 2015.jpg","type":"string"}}}
			]}}}}`))
		case id == "Q2" && props == "sitelinks":
			w.Write([]byte(`{"entities":{"Q2":{"id":"Q2","sitelinks":{"enwiki":{"site":"enwiki","title":"Rafael Nadal"}}}}}`))
		case id == "Q3" && props == "sitelinks":
			w.Write([]byte(`{"entities":{"Q3":{"id":"Q3","sitelinks":{"enwiki":{"site":"enwiki","title":"Andy Murray"}}}}}`))
		case id == "Q5":
			http.Error(w, "internal error", http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"entities":{"` + id + `":{"id":"` + id + `","claims":{},"sitelinks":{}}}}`))
		}
	})

	mux.HandleFunc("/rest/page/summary/Rafael_Nadal", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Rafael Nadal","originalimage":{"source":"` + srv.URL + `/img/nadal.jpg","width":800,"height":1200},
			"thumbnail":{"source":"` + srv.URL + `/img/nadal_small.jpg"}}`))
	})

	mux.HandleFunc("/rest/page/summary/Andy_Murray", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"not_found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("/wiki/api.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("prop") != "pageimages" || q.Get("pithumbsize") != "1000" || q.Get("pilicense") != "any" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if q.Get("titles") == "Andy Murray" {
			w.Write([]byte(`{"query":{"pages":{"123":{"pageid":123,"title":"Andy Murray",
				"thumbnail":{"source":"` + srv.URL + `/img/murray.jpg","width":1000,"height":1400}}}}}`))
			return
		}
		w.Write([]byte(`{"query":{"pages":{"-1":{"title":"` + q.Get("titles") + `","missing":""}}}}`))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return New(Options{
		Endpoints: Endpoints{
			WikidataAPI:   srv.URL + "/wikidata/api.php",
			WikipediaREST: srv.URL + "/rest/",
			WikipediaAPI:  srv.URL + "/wiki/api.php",
			Commons:       srv.URL,
		},
		UserAgent:     testUserAgent,
		RetryInterval: time.Millisecond,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestImageFromWikidata(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)

	src, err := c.ImageFromWikidata(context.Background(), "Q1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/wiki/Special:FilePath/Roger_Federer_2015.jpg", src)

	_, err = c.ImageFromWikidata(context.Background(), "Q2")
	assert.ErrorIs(t, err, ErrNoImage)

	_, err = c.ImageFromWikidata(context.Background(), "Q1.claims")
	assert.ErrorContains(t, err, "invalid Wikidata ID")
}

func TestEnwikiTitle(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)

	title, err := c.EnwikiTitle(context.Background(), "Q2")
	require.NoError(t, err)
	assert.Equal(t, "Rafael Nadal", title)

	_, err = c.EnwikiTitle(context.Background(), "Q4")
	assert.ErrorIs(t, err, ErrNoArticle)

	_, err = c.EnwikiTitle(context.Background(), "Q5")
	assert.ErrorContains(t, err, "status 500")
}

func TestMainImage(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)

	src, err := c.MainImage(context.Background(), "Rafael Nadal")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/nadal.jpg", src, "original image wins over the thumbnail")

	src, err = c.MainImage(context.Background(), "Andy Murray")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/murray.jpg", src, "falls back to pageimages")

	_, err = c.MainImage(context.Background(), "Nobody")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestImageURL(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)

	tests := []struct {
		id   string
		want string
	}{
		{"Q1", srv.URL + "/wiki/Special:FilePath/Roger_Federer_2015.jpg"},
		{"Q2", srv.URL + "/img/nadal.jpg"},
		{"Q3", srv.URL + "/img/murray.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			src, err := c.ImageURL(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, src)
		})
	}

	_, err := c.ImageURL(context.Background(), "Q4")
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = c.ImageURL(context.Background(), "Q5")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestCaptureResponse(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)
	dir := filepath.Join(t.TempDir(), "capture")
	require.NoError(t, c.SetCaptureDir(dir))

	_, err := c.EnwikiTitle(context.Background(), "Q2")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "wikidata_Q2_sitelinks_")

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Rafael Nadal"`)
}

func TestDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake jpeg bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "104745.jpg")
	require.NoError(t, newTestClient(srv).Download(context.Background(), srv.URL+"/img.jpg", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake jpeg bytes", string(data))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "1.jpg")
	require.NoError(t, newTestClient(srv).Download(context.Background(), srv.URL, path))
	assert.Equal(t, int32(3), hits.Load())
	assert.FileExists(t, path)
}

func TestDownload_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "1.jpg")
	err := newTestClient(srv).Download(context.Background(), srv.URL, path)
	assert.ErrorContains(t, err, "status 503")
	assert.Equal(t, int32(3), hits.Load())
	assert.NoFileExists(t, path)
}

func TestDownload_NotAnImage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "1.jpg")
	err := newTestClient(srv).Download(context.Background(), srv.URL, path)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Equal(t, int32(1), hits.Load(), "non-image responses are not retried")
	assert.NoFileExists(t, path)
}

func TestDownload_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "1.jpg")
	err := newTestClient(srv).Download(context.Background(), srv.URL, path)
	assert.ErrorIs(t, err, ErrEmptyFile)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial files are left behind")
}

func TestDownload_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestClient(srv).Download(ctx, srv.URL, filepath.Join(t.TempDir(), "1.jpg"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultEndpoints.WikidataAPI, c.endpoints.WikidataAPI)
	assert.Equal(t, "https://en.wikipedia.org/api/rest_v1", c.endpoints.WikipediaREST)
	assert.Equal(t, 3, c.retries)
	assert.Equal(t, time.Second, c.retryInterval)
	assert.Equal(t, 10*time.Second, c.api.Timeout)
	assert.Equal(t, 30*time.Second, c.download.Timeout)
}

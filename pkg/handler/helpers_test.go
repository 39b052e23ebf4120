package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yumyai/ggenrich/internal/config"
	"github.com/yumyai/ggenrich/pkg/kegg"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, keggURL string) *AppContext {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	if keggURL == "" {
		keggURL = "http://127.0.0.1:1"
	}
	cfg.KEGGBaseURL = keggURL

	app := NewAppContext(cfg, "test-run")
	app.KEGG = kegg.NewClient(keggURL, time.Second, kegg.WithRetry(1, time.Millisecond))
	app.Now = func() time.Time { return testNow }
	return app
}

// writeFile creates name under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertMissing(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should not have been written", p)
		}
	}
}

// fakeKEGG serves three modules. M00003 always fails with 500; offline makes
// every request fail.
type fakeKEGG struct {
	*httptest.Server
	offline atomic.Bool

	mu   sync.Mutex
	hits map[string]int
}

var fakeModules = map[string]string{
	"M00001": "ENTRY       M00001            Pathway   Module\n" +
		"NAME        first pathway\n" +
		"DEFINITION  K00001 K00002\n" +
		"            K00003\n///\n",
	"M00002": "ENTRY       M00002            Pathway   Module\n" +
		"NAME        second pathway\n" +
		"DEFINITION  (K00010,K00012) K00011\n///\n",
}

func newFakeKEGG(t *testing.T) *fakeKEGG {
	f := &fakeKEGG{hits: make(map[string]int)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()

		if f.offline.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch {
		case r.URL.Path == "/info/module":
			fmt.Fprint(w, "module           KEGG Module Database\nmd               Release 110.0+/05-13, May 24\n")
		case r.URL.Path == "/list/module":
			fmt.Fprint(w, "md:M00002\tsecond pathway\nmd:M00001\tfirst pathway\nmd:M00003\tthird pathway\n")
		case strings.HasPrefix(r.URL.Path, "/get/"):
			id := strings.TrimPrefix(r.URL.Path, "/get/")
			body, ok := fakeModules[id]
			if !ok {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeKEGG) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

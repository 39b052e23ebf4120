package kegg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moduleM00001 = `ENTRY       M00001            Pathway   Module
NAME        Glycolysis (Embden-Meyerhof pathway), glucose => pyruvate
DEFINITION  (K00844,K12407,K00845,K25026,K00886,K08074,K00918) (K01810,K06859,K13810,K15916)
            (K00850,K16370,K21071,K00918) (K01623,K01624,K11645,K16305,K16306) K01803
CLASS       Pathway modules; Carbohydrate metabolism; Central carbohydrate metabolism
///
`

const infoModule = `module           KEGG Module Database
md               Release 110.0+/05-13, May 24
                 Kanehisa Laboratories
                 506 entries
`

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(url string, retries int) *Client {
	c := NewClient(url, time.Second, WithRetry(retries, time.Millisecond))
	c.sleep = noSleep
	return c
}

func TestGetModule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get/M00001" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, moduleM00001)
	}))
	defer srv.Close()

	m, err := newTestClient(srv.URL, 0).GetModule(context.Background(), "M00001")
	require.NoError(t, err)
	assert.Equal(t, "M00001", m.ID)
	assert.Equal(t, "Glycolysis (Embden-Meyerhof pathway), glucose => pyruvate", m.Name)
	assert.Equal(t, "(K00844,K12407,K00845,K25026,K00886,K08074,K00918) (K01810,K06859,K13810,K15916) "+
		"(K00850,K16370,K21071,K00918) (K01623,K01624,K11645,K16305,K16306) K01803", m.Definition)
}

func TestListAndRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/list/module":
			fmt.Fprint(w, "md:M00001\tGlycolysis\nmd:M00002\tGlycolysis, core module\n")
		case "/info/module":
			fmt.Fprint(w, infoModule)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	entries, err := c.ListModules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ModuleEntry{{"M00001", "Glycolysis"}, {"M00002", "Glycolysis, core module"}}, entries)

	rel, err := c.Release(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "110.0+/05-13", rel)
}

func TestRetryThenSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, moduleM00001)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).GetModule(context.Background(), "M00001")
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).GetModule(context.Background(), "M00001")
	var le *LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 3, le.Attempts)
	assert.Equal(t, http.StatusTooManyRequests, le.Status)
	assert.ErrorIs(t, err, ErrStatus)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).GetModule(context.Background(), "M99999")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCancelledBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL, time.Second, WithRetry(5, time.Hour))
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := c.GetModule(ctx, "M00001")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseModuleWithoutDefinition(t *testing.T) {
	_, err := parseModule("ENTRY       M00999\nNAME        nothing\n///\n")
	assert.ErrorIs(t, err, ErrStatus)
}

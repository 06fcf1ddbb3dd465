package runconfig_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sanix-darker/loadgun/internal/httpclient"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/sanix-darker/loadgun/internal/runconfig"
	"github.com/sanix-darker/loadgun/internal/stats"
	"github.com/sanix-darker/loadgun/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTripsDeclaration(t *testing.T) {
	raw := []byte(`
providers:
  ids:
    range:
      start: 1
      end: 3
      step: 1
loggers:
  out:
    to: stdout
endpoints:
  - id: ping
    method: GET
    url: "http://example.test/${ids}"
    from: [ids]
    logs:
      out: response.status
`)
	doc, err := runconfig.Parse(raw)
	require.NoError(t, err)

	require.Contains(t, doc.Providers, "ids")
	require.NotNil(t, doc.Providers["ids"].Range)
	assert.Equal(t, 1, doc.Providers["ids"].Range.Start)
	assert.Equal(t, 3, doc.Providers["ids"].Range.End)

	require.Contains(t, doc.Loggers, "out")
	assert.Equal(t, "stdout", doc.Loggers["out"].To)

	require.Len(t, doc.Endpoints, 1)
	assert.Equal(t, "ping", doc.Endpoints[0].ID)
	assert.Equal(t, []string{"ids"}, doc.Endpoints[0].From)
	assert.Equal(t, "response.status", doc.Endpoints[0].Logs["out"])
}

func TestParse_InvalidYAMLErrors(t *testing.T) {
	_, err := runconfig.Parse([]byte("providers: [this is not a map"))
	assert.Error(t, err)
}

func TestCompile_UnknownFromProviderErrors(t *testing.T) {
	doc := runconfig.Doc{
		Endpoints: []runconfig.EndpointDecl{{
			ID:   "e1",
			From: []string{"missing"},
		}},
	}
	k := killer.New()
	_, err := runconfig.Compile(context.Background(), doc, "", k)
	assert.Error(t, err)
}

func TestCompile_UnknownProvidesProviderErrors(t *testing.T) {
	doc := runconfig.Doc{
		Providers: map[string]runconfig.ProviderDecl{
			"ids": {Range: &runconfig.RangeDecl{Start: 0, End: 1, Step: 1}},
		},
		Endpoints: []runconfig.EndpointDecl{{
			ID:       "e1",
			From:     []string{"ids"},
			Provides: map[string]string{"missing": "response.body"},
		}},
	}
	k := killer.New()
	_, err := runconfig.Compile(context.Background(), doc, "", k)
	assert.Error(t, err)
}

func TestCompile_UnknownLoggerErrors(t *testing.T) {
	doc := runconfig.Doc{
		Providers: map[string]runconfig.ProviderDecl{
			"ids": {Range: &runconfig.RangeDecl{Start: 0, End: 1, Step: 1}},
		},
		Endpoints: []runconfig.EndpointDecl{{
			ID:   "e1",
			From: []string{"ids"},
			Logs: map[string]string{"missing": "response.status"},
		}},
	}
	k := killer.New()
	_, err := runconfig.Compile(context.Background(), doc, "", k)
	assert.Error(t, err)
}

func TestCompile_WiresProvidersEndpointsAndRunsToCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	doc := runconfig.Doc{
		Providers: map[string]runconfig.ProviderDecl{
			"ids": {Range: &runconfig.RangeDecl{Start: 1, End: 2, Step: 1}},
		},
		Loggers: map[string]runconfig.LoggerDecl{
			"out": {To: "stdout"},
		},
		Endpoints: []runconfig.EndpointDecl{{
			ID:     "ping",
			Method: http.MethodGet,
			URL:    srv.URL + "/${ids}",
			From:   []string{"ids"},
			Logs:   map[string]string{"out": "response.status"},
		}},
	}

	k := killer.New()
	compiled, err := runconfig.Compile(context.Background(), doc, "", k)
	require.NoError(t, err)
	require.Len(t, compiled.Endpoints, 1)
	assert.Equal(t, "ping", compiled.Endpoints[0].ID)

	client := httpclient.New(httpclient.Options{Timeout: time.Second})
	sink := stats.NewSink(func(stats.Message) {})
	defer sink.Close()

	done := make(chan killer.Outcome, 1)
	go func() { done <- runconfig.Drive(context.Background(), compiled, client, sink, k) }()

	select {
	case outcome := <-done:
		assert.Equal(t, killer.ReasonCompleted, outcome.Reason)
	case <-time.After(3 * time.Second):
		t.Fatal("drive did not complete")
	}
}

func TestCompile_ForEachPrefixSelectsForEachSelect(t *testing.T) {
	doc := runconfig.Doc{
		Providers: map[string]runconfig.ProviderDecl{
			"ids":     {Range: &runconfig.RangeDecl{Start: 0, End: 1, Step: 1}},
			"capture": {Response: &runconfig.RespProviderDecl{}},
		},
		Endpoints: []runconfig.EndpointDecl{{
			ID:       "e1",
			From:     []string{"ids"},
			Provides: map[string]string{"capture": "for_each: response.body.items"},
		}},
	}
	k := killer.New()
	compiled, err := runconfig.Compile(context.Background(), doc, "", k)
	require.NoError(t, err)
	require.Len(t, compiled.Endpoints[0].Provides, 1)

	sel, ok := compiled.Endpoints[0].Provides[0].Select.(template.ForEachSelect)
	require.True(t, ok)
	assert.Equal(t, "response.body.items", sel.Path)
}

func TestCompile_UnknownProviderVariantErrors(t *testing.T) {
	doc := runconfig.Doc{
		Providers: map[string]runconfig.ProviderDecl{
			"broken": {},
		},
	}
	k := killer.New()
	_, err := runconfig.Compile(context.Background(), doc, "", k)
	assert.Error(t, err)
}

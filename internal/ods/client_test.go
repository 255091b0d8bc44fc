package ods

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
	At     time.Time
}

type catalogStub struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func newCatalogStub(t *testing.T) (*catalogStub, *httptest.Server) {
	t.Helper()
	stub := &catalogStub{status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.requests = append(stub.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get(HeaderAuthorization),
			Body:   body,
			At:     time.Now(),
		})
		status := stub.status
		stub.mu.Unlock()
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":"dataset locked"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (s *catalogStub) all() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func TestConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Config{}).Validate(), ErrNoBaseURL)
	assert.Error(t, (&Config{BaseURL: "ftp://data.bs.ch"}).Validate())
	assert.NoError(t, (&Config{BaseURL: "https://data.bs.ch"}).Validate())
}

func TestPush_SendsRecordsWithKeys(t *testing.T) {
	stub, srv := newCatalogStub(t)
	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	target := &PushTarget{URL: srv.URL + "/api/push/1.0/100223/echtzeit/push/", Key: "pk-123", APIKey: "ak-456"}
	records := []map[string]any{{"datum": "2026-05-15", "stimmbeteiligung": 1.5}}
	require.NoError(t, c.Push(testContext(t), target, records))

	reqs := stub.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/push/1.0/100223/echtzeit/push/", reqs[0].Path)
	assert.Equal(t, "pushkey=pk-123", reqs[0].Query)
	assert.Equal(t, "apikey ak-456", reqs[0].Auth)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &got))
	assert.Equal(t, "2026-05-15", got[0]["datum"])
	assert.InDelta(t, 1.5, got[0]["stimmbeteiligung"], 0.0001)
}

func TestPush_WithoutAPIKeyOmitsAuthorization(t *testing.T) {
	stub, srv := newCatalogStub(t)
	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Push(testContext(t), &PushTarget{URL: srv.URL + "/push", Key: "k"}, []int{1}))
	assert.Empty(t, stub.all()[0].Auth)
}

func TestPush_ValidatesTarget(t *testing.T) {
	c, err := New(Config{BaseURL: "https://data.bs.ch"}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Push(testContext(t), nil, nil), ErrNoPushURL)
	assert.ErrorIs(t, c.Push(testContext(t), &PushTarget{URL: "https://x"}, nil), ErrNoPushKey)
	assert.ErrorIs(t, c.Delete(testContext(t), &PushTarget{URL: "https://x", Key: "k"}, nil), ErrNoDeleteURL)
}

func TestPush_Non2xxIsAPIError(t *testing.T) {
	stub, srv := newCatalogStub(t)
	stub.status = http.StatusBadRequest
	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	err = c.Push(testContext(t), &PushTarget{URL: srv.URL + "/push", Key: "k"}, []int{1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "dataset locked")
}

func TestPush_UnreachableIsTransportError(t *testing.T) {
	_, srv := newCatalogStub(t)
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)

	err = c.Push(testContext(t), &PushTarget{URL: url + "/push", Key: "k"}, []int{1})
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestDelete_PostsToDeleteURL(t *testing.T) {
	stub, srv := newCatalogStub(t)
	c, err := New(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	target := &PushTarget{URL: srv.URL + "/push", DeleteURL: srv.URL + "/delete", Key: "k"}
	require.NoError(t, c.Delete(testContext(t), target, []map[string]any{{"tage_bis_abst": 3}}))

	reqs := stub.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/delete", reqs[0].Path)
	assert.Equal(t, "pushkey=k", reqs[0].Query)
}

func TestPublishDatasets_SequentialWithDelay(t *testing.T) {
	stub, srv := newCatalogStub(t)
	delay := 50 * time.Millisecond
	c, err := New(Config{BaseURL: srv.URL + "/", APIKey: "secret", PublishDelay: delay}, nil)
	require.NoError(t, err)

	require.NoError(t, c.PublishDatasets(testContext(t), []string{"100395", "100352"}))

	reqs := stub.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/automation/v1.0/datasets/100395/publish/", reqs[0].Path)
	assert.Equal(t, "/api/automation/v1.0/datasets/100352/publish/", reqs[1].Path)
	assert.Equal(t, "apikey secret", reqs[0].Auth)
	assert.GreaterOrEqual(t, reqs[1].At.Sub(reqs[0].At), delay-10*time.Millisecond)
}

func TestPublishDatasets_StopsAtFirstFailure(t *testing.T) {
	stub, srv := newCatalogStub(t)
	stub.status = http.StatusNotFound
	c, err := New(Config{BaseURL: srv.URL, APIKey: "secret"}, nil)
	require.NoError(t, err)

	err = c.PublishDatasets(testContext(t), []string{"1", "2"})
	require.Error(t, err)
	assert.Len(t, stub.all(), 1)
}

func TestPublishDataset_RequiresKeyAndUID(t *testing.T) {
	c, err := New(Config{BaseURL: "https://data.bs.ch"}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, c.PublishDataset(testContext(t), " "), ErrNoDataset)
	assert.ErrorIs(t, c.PublishDataset(testContext(t), "100395"), ErrNoAPIKey)
}

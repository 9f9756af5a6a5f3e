package bookshop_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"BookShop/internal/bookshop"
	"BookShop/internal/catalog"
	"BookShop/internal/session"
	"BookShop/internal/users"
)

const metricsToken = "scrape-token"

func newShopTS(t *testing.T) *httptest.Server {
	t.Helper()

	cat, err := catalog.NewMemStore(catalog.DefaultSeed())
	require.NoError(t, err)

	mgr := session.NewManager(
		memstore.New(),
		session.NewTokenMaker("test-secret"),
		session.Options{CookiePath: "/customer"},
		zap.NewNop(),
	)

	h := bookshop.NewHandler(
		bookshop.Deps{
			Catalog:  cat,
			Users:    users.NewMemStoreWithCost(bcrypt.MinCost),
			Sessions: mgr,
		},
		bookshop.HTTPDeps{
			Log:            zap.NewNop(),
			Service:        "bookshop",
			Registry:       prometheus.NewRegistry(),
			MetricsEnabled: true,
			MetricsToken:   metricsToken,
		},
	)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestShop_CustomerJourney(t *testing.T) {
	ts := newShopTS(t)
	c := newClient(t)

	creds := map[string]string{"username": "reader", "password": "s3cret"}

	resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/register", creds, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, c, http.MethodPut, ts.URL+"/customer/auth/review/3?review=sublime", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), session.MsgAccessRestricted)

	resp, raw = doJSON(t, c, http.MethodPost, ts.URL+"/customer/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, c, http.MethodPut, ts.URL+"/customer/auth/review/3?review=sublime", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = doJSON(t, c, http.MethodGet, ts.URL+"/isbn/3", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var book catalog.Book
	require.NoError(t, json.Unmarshal(raw, &book))
	assert.Equal(t, "The Divine Comedy", book.Title)
	assert.Equal(t, map[string]string{"reader": "sublime"}, book.Reviews)

	resp, _ = doJSON(t, c, http.MethodPost, ts.URL+"/customer/logout", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodDelete, ts.URL+"/customer/auth/review/3", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestShop_SessionIsPerClient(t *testing.T) {
	ts := newShopTS(t)
	alice, bob := newClient(t), newClient(t)

	creds := map[string]string{"username": "alice", "password": "pw"}
	resp, _ := doJSON(t, alice, http.MethodPost, ts.URL+"/register", creds, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, alice, http.MethodPost, ts.URL+"/customer/login", creds, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, bob, http.MethodPut, ts.URL+"/customer/auth/review/1?review=x", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestShop_PublicCatalog(t *testing.T) {
	ts := newShopTS(t)
	c := newClient(t)

	resp, first := doJSON(t, c, http.MethodGet, ts.URL+"/", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, second := doJSON(t, c, http.MethodGet, ts.URL+"/", nil, nil)
	assert.Equal(t, first, second)

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/author/UNKNOWN", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/title/gilgamesh", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/isbn/0000", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(raw), `"message"`)
}

func TestShop_UnknownRoutesAnswerJSON(t *testing.T) {
	ts := newShopTS(t)
	c := newClient(t)

	for _, tc := range []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/nope/x", http.StatusNotFound},
		{http.MethodGet, "/title/", http.StatusNotFound},
		{http.MethodGet, "/customer/nope", http.StatusNotFound},
		{http.MethodDelete, "/", http.StatusMethodNotAllowed},
		{http.MethodGet, "/customer/login", http.StatusMethodNotAllowed},
	} {
		resp, raw := doJSON(t, c, tc.method, ts.URL+tc.path, nil, nil)
		assert.Equal(t, tc.code, resp.StatusCode, tc.path)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), tc.path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
		assert.NotEmpty(t, body["message"], tc.path)
	}
}

func TestShop_Probes(t *testing.T) {
	ts := newShopTS(t)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestShop_MetricsRequireToken(t *testing.T) {
	ts := newShopTS(t)
	c := newClient(t)

	resp, _ := doJSON(t, c, http.MethodGet, ts.URL+"/", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer " + metricsToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(raw), "http_requests_total"))
}

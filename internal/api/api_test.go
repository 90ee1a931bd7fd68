package api

import (
	"encoding/json"
	"lccache/internal/config"
	"lccache/internal/metrics"
	testFactory "lccache/internal/testing"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newRequestCtx(method, uri string, body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	return ctx
}

func newRouter(t *testing.T, opts ...func(*config.SystemConfiguration)) (*HttpApiRouter, *testFactory.TestSystemFactory) {
	f := testFactory.NewTestFactory(t)
	return &HttpApiRouter{SystemState: f.CreateSystem(opts...)}, f
}

func TestHandlePutAndGet(t *testing.T) {
	router, f := newRouter(t)
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()

	put := newRequestCtx("POST", "/put", `{"key":"testk","value":"testv"}`)
	handler(put)
	require.Equal(t, fasthttp.StatusCreated, put.Response.StatusCode())

	get := newRequestCtx("GET", "/get?key=testk", "")
	handler(get)
	require.Equal(t, fasthttp.StatusOK, get.Response.StatusCode())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(get.Response.Body(), &payload))
	assert.Equal(t, "testk", payload["key"])
	assert.Equal(t, "testv", payload["val"])
}

func TestGetMissingAndBadRequests(t *testing.T) {
	router, f := newRouter(t)
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()

	cases := []struct {
		name   string
		ctx    *fasthttp.RequestCtx
		status int
	}{
		{"unknown key", newRequestCtx("GET", "/get?key=nope", ""), fasthttp.StatusNotFound},
		{"missing key param", newRequestCtx("GET", "/get", ""), fasthttp.StatusBadRequest},
		{"empty key put", newRequestCtx("POST", "/put", `{"key":"","value":"v"}`), fasthttp.StatusBadRequest},
		{"malformed body", newRequestCtx("POST", "/put", `{"key":`), fasthttp.StatusBadRequest},
		{"wrong method", newRequestCtx("DELETE", "/get?key=a", ""), fasthttp.StatusMethodNotAllowed},
		{"unknown path", newRequestCtx("GET", "/nowhere", ""), fasthttp.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler(tc.ctx)
			assert.Equal(t, tc.status, tc.ctx.Response.StatusCode())
		})
	}
}

func TestPutEvictsLeastRecentlyUsed(t *testing.T) {
	router, f := newRouter(t, func(c *config.SystemConfiguration) { c.CacheCapacityCount = 2 })
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()
	f.Populate(router.SystemState, "one", "1", "two", "2")

	handler(newRequestCtx("GET", "/get?key=one", ""))
	handler(newRequestCtx("PUT", "/put", `{"key":"three","value":"3"}`))

	evicted := newRequestCtx("GET", "/get?key=two", "")
	handler(evicted)
	assert.Equal(t, fasthttp.StatusNotFound, evicted.Response.StatusCode())

	kept := newRequestCtx("GET", "/get?key=one", "")
	handler(kept)
	assert.Equal(t, fasthttp.StatusOK, kept.Response.StatusCode())
}

func TestRequestIDHeader(t *testing.T) {
	router, f := newRouter(t)
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()

	generated := newRequestCtx("GET", "/get?key=absent", "")
	handler(generated)
	assert.Len(t, string(generated.Response.Header.Peek(RequestIDHeader)), 36, "uuid v4 expected")

	supplied := newRequestCtx("GET", "/get?key=absent", "")
	supplied.Request.Header.Set(RequestIDHeader, "req-123")
	handler(supplied)
	assert.Equal(t, "req-123", string(supplied.Response.Header.Peek(RequestIDHeader)))
}

func TestMetricsEndpoint(t *testing.T) {
	router, f := newRouter(t)
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()
	metrics.Reset()
	f.Populate(router.SystemState, "a", "1", "b", "2")

	handler(newRequestCtx("GET", "/get?key=a", ""))
	handler(newRequestCtx("GET", "/get?key=zzz", ""))

	ctx := newRequestCtx("GET", "/metrics", "")
	handler(ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var snapshot metrics.SystemMetricsRegistry
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &snapshot))
	assert.Equal(t, int64(2), snapshot.CacheSize)
	assert.Equal(t, int64(1), snapshot.CacheHitCount)
	assert.Equal(t, int64(1), snapshot.CacheMissCount)
	assert.Equal(t, int64(2), snapshot.ReadOperationsCount)
}

func TestConsistencyEndpoint(t *testing.T) {
	router, f := newRouter(t)
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()
	f.Populate(router.SystemState, "a", "1", "b", "2", "c", "3")

	ctx := newRequestCtx("GET", "/consistency", "")
	handler(ctx)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var payload consistencyResponsePayload
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &payload))
	assert.True(t, payload.Consistent)
	assert.Equal(t, 3, payload.Size)
}

func TestAuthentication(t *testing.T) {
	const secret = "unit-test-secret"
	router, f := newRouter(t, func(c *config.SystemConfiguration) {
		c.AuthenticationSecret = secret
		c.AuthenticationToken = "required"
	})
	defer f.Cleanup()
	handler := router.GetFastHTTPHandler()

	anonymous := newRequestCtx("GET", "/get?key=a", "")
	handler(anonymous)
	assert.Equal(t, fasthttp.StatusUnauthorized, anonymous.Response.StatusCode())

	forged := newRequestCtx("GET", "/get?key=a", "")
	forged.Request.Header.Set("Authorization", "v2.local.garbage")
	handler(forged)
	assert.Equal(t, fasthttp.StatusUnauthorized, forged.Response.StatusCode())

	token, err := IssueToken(secret, "admin", time.Hour)
	require.NoError(t, err)
	authorized := newRequestCtx("GET", "/get?key=a", "")
	authorized.Request.Header.Set("Authorization", token)
	handler(authorized)
	assert.Equal(t, fasthttp.StatusNotFound, authorized.Response.StatusCode())
}

func TestVerifyTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := IssueToken("secret", "admin", -time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken("secret", expired)
	assert.Error(t, err)

	valid, err := IssueToken("secret", "admin", time.Minute)
	require.NoError(t, err)
	_, err = VerifyToken("other", valid)
	assert.Error(t, err)

	claims, err := VerifyToken("secret", valid)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.NotEmpty(t, claims.Jti)
}

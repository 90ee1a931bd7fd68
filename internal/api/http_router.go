package api

import (
	"encoding/json"
	"lccache/internal/cache"
	"lccache/internal/core"
	"lccache/internal/logger"
	"lccache/internal/metrics"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const RequestIDHeader = "X-Request-ID"

type HttpApiRouter struct {
	SystemState *core.SystemState
}

type SinglePutRequestPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type getResponsePayload struct {
	Key   string `json:"key"`
	Value string `json:"val"`
}

type consistencyResponsePayload struct {
	Consistent bool   `json:"consistent"`
	Size       int    `json:"size"`
	Error      string `json:"error,omitempty"`
}

func (router *HttpApiRouter) GetFastHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		router.handleRequest(ctx)
	}
}

func (router *HttpApiRouter) handleRequest(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	requestID := requestIDFor(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.LogErrorEvent("PANIC %s: %v\n%s", requestID, r, debug.Stack())
			ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		}
		// set last: ctx.Error resets response headers
		ctx.Response.Header.Set(RequestIDHeader, requestID)
		logger.LogAccessEvent("%s %s %s %s %d %v", requestID, string(ctx.Method()), string(ctx.Path()), ctx.RemoteAddr(), ctx.Response.StatusCode(), time.Since(startTime))
	}()

	if !router.checkAuth(ctx) {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}

	router.routePath(ctx)
}

func (router *HttpApiRouter) routePath(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/put":
		router.HandleSinglePutRequest(ctx)
	case "/get":
		router.HandleGetRequest(ctx)
	case "/metrics":
		router.HandleMetricsRequest(ctx)
	case "/consistency":
		router.HandleConsistencyRequest(ctx)
	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

// checkAuth lets requests through unauthenticated only when no token is
// configured and none is presented.
func (router *HttpApiRouter) checkAuth(ctx *fasthttp.RequestCtx) bool {
	configToken := router.SystemState.Configuration.AuthenticationToken
	headerToken := string(ctx.Request.Header.Peek("Authorization"))

	if configToken == "" && headerToken == "" {
		return true
	}

	_, err := VerifyToken(router.SystemState.Configuration.AuthenticationSecret, headerToken)
	return err == nil
}

func (router *HttpApiRouter) HandleSinglePutRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "POST", "PUT") {
		return
	}

	var payload SinglePutRequestPayload
	if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
		ctx.Error("Bad Request", fasthttp.StatusBadRequest)
		return
	}

	if err := router.SystemState.KeyCache.AddOrUpdate(payload.Key, []byte(payload.Value)); err != nil {
		if errors.Is(err, cache.ErrInvalidKey) {
			ctx.Error("Missing key", fasthttp.StatusBadRequest)
			return
		}
		logger.LogErrorEvent("Put Error: %v", err)
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
		return
	}
	metrics.IncrementWriteOperationsCount()
	ctx.SetStatusCode(fasthttp.StatusCreated)
}

func (router *HttpApiRouter) HandleGetRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "GET") {
		return
	}

	key := string(ctx.QueryArgs().Peek("key"))
	if key == "" {
		ctx.Error("Missing key", fasthttp.StatusBadRequest)
		return
	}

	metrics.IncrementReadOperationsCount()
	value, hit := router.SystemState.KeyCache.TryGet(key)
	if !hit {
		metrics.IncrementCacheMissCount()
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	metrics.IncrementCacheHitCount()
	writeJSON(ctx, fasthttp.StatusOK, getResponsePayload{Key: key, Value: string(value)})
}

func (router *HttpApiRouter) HandleMetricsRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "GET") {
		return
	}
	metrics.SetCacheSize(router.SystemState.KeyCache.Len())
	writeJSON(ctx, fasthttp.StatusOK, metrics.Snapshot())
}

// HandleConsistencyRequest runs the cache's structural self-check. Results
// are only trustworthy while no writes are in flight.
func (router *HttpApiRouter) HandleConsistencyRequest(ctx *fasthttp.RequestCtx) {
	if !isMethodAllowed(ctx, "GET") {
		return
	}

	keyCache := router.SystemState.KeyCache
	response := consistencyResponsePayload{Consistent: true, Size: keyCache.Len()}
	status := fasthttp.StatusOK
	if err := keyCache.CheckConsistency(); err != nil {
		logger.LogWarnEvent("consistency check failed: %v", err)
		response.Consistent = false
		response.Error = err.Error()
		status = fasthttp.StatusConflict
	}
	writeJSON(ctx, status, response)
}

// requestIDFor reuses the caller's request id or generates a uuid v4.
func requestIDFor(ctx *fasthttp.RequestCtx) string {
	if requestID := string(ctx.Request.Header.Peek(RequestIDHeader)); requestID != "" {
		return requestID
	}
	return uuid.New().String()
}

func isMethodAllowed(ctx *fasthttp.RequestCtx, methods ...string) bool {
	reqMethod := string(ctx.Method())
	for _, m := range methods {
		if reqMethod == m {
			return true
		}
	}
	ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
	return false
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(payload); err != nil {
		logger.LogErrorEvent("encode response: %v", err)
	}
}

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"lccache/internal/api"
	"lccache/internal/config"
	"lccache/internal/core"
	"lccache/internal/logger"
	"lccache/internal/metrics"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/pprofhandler"
)

const adminTokenTTL = 24 * time.Hour

var pprofPrefix = []byte("/debug/pprof")

func main() {
	cfgPath := flag.String("config", "", "Config path")
	printTemplate := flag.Bool("print-config", false, "Print a configuration template and exit")
	flag.Parse()

	if *printTemplate {
		fmt.Println(config.ConfigurationTemplate)
		return
	}

	cfg, err := config.LoadConfigurationFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}

	if err := logger.InitializeLogger(cfg.LogDirectoryPath, cfg.LogSeverityLevel); err != nil {
		log.Fatal(err)
	}
	defer logger.ShutdownLogger()

	configureRuntime(cfg)

	system, err := core.NewSystemState(cfg)
	if err != nil {
		logger.LogErrorEvent("System Error: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.StartSystemMonitor(ctx, time.Duration(cfg.MetricsSampleIntervalInSeconds)*time.Second, system.KeyCache.Len)

	if err := printAdminToken(cfg); err != nil {
		logger.LogErrorEvent("Token Error: %v", err)
	}

	server := newServer(system)
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	logger.LogInfoEvent("Listening on %s (capacity=%d variance=%d)", addr, cfg.CacheCapacityCount, cfg.CacheSizeVariance)

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe(addr) }()

	select {
	case err := <-serveErr:
		logger.LogErrorEvent("Server Error: %v", err)
	case <-ctx.Done():
		logger.LogInfoEvent("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			logger.LogErrorEvent("Shutdown Error: %v", err)
		}
	}
	logger.LogInfoEvent("Final counters: %v", metrics.GetCurrentState())
}

func configureRuntime(cfg config.SystemConfiguration) {
	if cfg.MaximumCpuCount > 0 {
		runtime.GOMAXPROCS(cfg.MaximumCpuCount)
	}
	logger.LogDebugEvent("GOMAXPROCS=%d", runtime.GOMAXPROCS(0))
}

// printAdminToken prints a day-long admin token when no static token is configured.
func printAdminToken(cfg config.SystemConfiguration) error {
	if cfg.AuthenticationToken != "" {
		return nil
	}
	token, err := api.IssueToken(cfg.AuthenticationSecret, "admin", adminTokenTTL)
	if err != nil {
		return err
	}
	fmt.Printf("ADMIN TOKEN: %s\n", token)
	return nil
}

func newServer(system *core.SystemState) *fasthttp.Server {
	router := &api.HttpApiRouter{SystemState: system}
	handler := router.GetFastHTTPHandler()

	if system.Configuration.EnablePprofProfiling {
		apiHandler := handler
		handler = func(ctx *fasthttp.RequestCtx) {
			if bytes.HasPrefix(ctx.Path(), pprofPrefix) {
				pprofhandler.PprofHandler(ctx)
				return
			}
			apiHandler(ctx)
		}
	}

	return &fasthttp.Server{
		Handler:      handler,
		Name:         "lccache",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"worldcore/server"
)

// 入口：加载配置与日志，启动 WebSocket 服务，Ctrl+C 优雅退出
func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.StringVar(&addr, "addr", "", "override listen address, e.g. :9000")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.ListenAddress = addr
	}

	log, err := server.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	deadlock.Opts.Disable = !cfg.LockDebug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cfg, log)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
	log.Info("stopped")
}

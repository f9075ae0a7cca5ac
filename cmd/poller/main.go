package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"oms/mpsync/internal/marketplace"
	"oms/mpsync/internal/poller"
	"oms/mpsync/pkg/config"
	"oms/mpsync/pkg/infra/mysql"
	"oms/mpsync/pkg/lmstfy"
	"oms/mpsync/pkg/logger"
)

var (
	configPath = flag.String("config", "./config/poller.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  MPSYNC Poller Starting...")
	log.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	if err := cfg.ValidatePoller(); err != nil {
		log.Fatalf("Poller config validation failed: %v", err)
	}

	log.Printf("Config loaded: %s, env: %s, interval: %v\n", cfg.App.Name, cfg.App.Env, cfg.Poller.Interval)

	// 2. 初始化 Logger
	zapLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. 初始化依赖
	db, err := mysql.NewDB(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("Failed to connect mysql: %v", err)
	}
	profileDAO := mysql.NewProfileDAO(db)
	orderDAO := mysql.NewOrderDAO(db)

	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		log.Fatalf("Failed to create lmstfy client: %v", err)
	}

	mpClient := marketplace.NewHTTPClient(cfg.Marketplace.BaseURL, cfg.Marketplace.Token, cfg.Marketplace.Timeout)

	// 4. 创建 Poller
	p := poller.NewPoller(
		&cfg.Poller,
		cfg.Marketplace.OrderPrefix,
		mpClient,
		profileDAO,
		orderDAO,
		lmstfyClient,
		zapLogger,
	)

	// 5. 运行（信号触发 Context 取消）
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v, shutting down...\n", sig)
		cancel()
	}()

	log.Println("Poller started. Press Ctrl+C to shutdown.")

	if err := p.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Poller stopped with error: %v", err)
	}

	fmt.Println("========================================")
	fmt.Println("  Poller exited gracefully")
	fmt.Println("========================================")
}

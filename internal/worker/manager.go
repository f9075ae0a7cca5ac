package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"oms/mpsync/internal/business/identity"
	"oms/mpsync/internal/business/reconcile"
	"oms/mpsync/internal/business/retrydispatch"
	"oms/mpsync/internal/domains"
	"oms/mpsync/internal/domains/common"
	"oms/mpsync/internal/framework"
	"oms/mpsync/internal/marketplace"
	"oms/mpsync/pkg/config"
	"oms/mpsync/pkg/infra/mysql"
	infraredis "oms/mpsync/pkg/infra/redis"
	"oms/mpsync/pkg/lmstfy"
	"oms/mpsync/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx          context.Context
	cfg          *config.Config
	lmstfyClient *lmstfy.Client
	deps         *common.Deps
	workers      []Worker
	closing      *atomic.Bool
	shutdownCh   chan struct{}
	wg           sync.WaitGroup
	logger       logger.Logger
}

// NewManagerInstance 创建 Manager 并装配全部依赖
func NewManagerInstance(cfg *config.Config, log logger.Logger) (Manager, error) {
	ctx := context.Background()

	// 初始化 lmstfy 客户端
	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
	}

	// 初始化 MySQL
	db, err := mysql.NewDB(cfg.MySQL.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}
	orderDAO := mysql.NewOrderDAO(db)
	catalogDAO := mysql.NewCatalogDAO(db)
	profileDAO := mysql.NewProfileDAO(db)

	// 初始化 Redis（幂等守卫 + 订单锁）
	redisCli, err := infraredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	dedup := infraredis.NewDedup(redisCli)
	locker := infraredis.NewLocker(redisCli)

	// 初始化市场客户端
	mpClient := marketplace.NewHTTPClient(cfg.Marketplace.BaseURL, cfg.Marketplace.Token, cfg.Marketplace.Timeout)

	// 业务服务装配
	reconciler := reconcile.NewService(
		catalogDAO, profileDAO, orderDAO,
		dedup, locker, mpClient,
		cfg.Marketplace.DedupTTL, log,
	)
	resolver := identity.NewResolver(mpClient, cfg.Marketplace.OrderPrefix, log)
	dispatcher := retrydispatch.NewDispatcher(lmstfyClient, cfg.Poller.SyncQueuePrefix, log)

	deps := &common.Deps{
		Reconciler:   reconciler,
		Identity:     resolver,
		Retry:        dispatcher,
		Profiles:     profileDAO,
		Marketplace:  mpClient,
		NumberPrefix: cfg.Marketplace.OrderPrefix,
		Logger:       log,
	}

	log.Infof(ctx, "[Manager] Initialized with %d worker configs", len(cfg.Workers))

	return &ManagerInstance{
		ctx:          ctx,
		cfg:          cfg,
		lmstfyClient: lmstfyClient,
		deps:         deps,
		closing:      atomic.NewBool(false),
		shutdownCh:   make(chan struct{}),
		workers:      make([]Worker, 0),
		logger:       log,
	}, nil
}

// Start 启动 Manager
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	// 1. 加载所有 Worker
	if err := m.loadWorkers(); err != nil {
		return fmt.Errorf("failed to load workers: %w", err)
	}

	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	m.logger.Infof(m.ctx, "[Manager] Start success")

	// 3. 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	// 原子操作，保证并发安全
	if m.closing.CAS(false, true) {
		// 1. 所有 Worker 安全退出
		for _, worker := range m.workers {
			m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
			worker.Shutdown()
		}

		// 2. 等待所有 Worker 退出
		m.wg.Wait()

		// 3. 关闭信号通道
		close(m.shutdownCh)

		m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
	}
}

// loadWorkers 加载所有 Worker
func (m *ManagerInstance) loadWorkers() error {
	// 全部 Worker 共享同一个处理函数，路由在 HandlerMap 内完成
	getProcess := domains.GetProcess(m.logger, m.deps)

	for _, workerCfg := range m.cfg.Workers {
		subCfg := &framework.SubscriberConfig{
			QueueName:    workerCfg.QueueName,
			Concurrency:  workerCfg.Subscriber.Threads,
			Rate:         workerCfg.Subscriber.Rate,
			Timeout:      workerCfg.Subscriber.Timeout,
			TTR:          workerCfg.Subscriber.TTR,
			ErrorBackoff: workerCfg.Subscriber.ErrorBackoff,
		}

		procCfg := &framework.ProcessorConfig{
			Concurrency: workerCfg.Processor.Threads,
			BufferSize:  workerCfg.Processor.BufferSize,
			Timeout:     workerCfg.Processor.Timeout,
		}

		worker, err := NewWorkerInstance(
			m.ctx,
			workerCfg.Name,
			subCfg,
			procCfg,
			m.lmstfyClient, // MessageSource
			getProcess,     // lmstfyx.Proc
			m.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", workerCfg.Name, err)
		}

		m.workers = append(m.workers, worker)
	}

	return nil
}

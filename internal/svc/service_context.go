package svc

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/cache"
	"defi-snapshot-xrd/internal/config"
	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/logic/positions"
	"defi-snapshot-xrd/internal/logic/positions/clpool"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/logic/positions/lending"
	"defi-snapshot-xrd/internal/logic/positions/simplepool"
	"defi-snapshot-xrd/internal/logic/progress"
	"defi-snapshot-xrd/internal/logic/snapshot"
	"defi-snapshot-xrd/internal/mq"
	"defi-snapshot-xrd/internal/types"
	"defi-snapshot-xrd/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ServiceContext 持有快照服务的全部长生命周期资源
type ServiceContext struct {
	Config          config.SnapshotConfig
	Gateway         *gateway.Client
	Orchestrator    *snapshot.Orchestrator
	Validators      []common.ValidatorMeta
	QuoteHistory    *cache.QuoteHistory
	QuoteCache      *cache.QuoteCache
	Producer        *kafka.Producer
	ProgressManager *progress.ProgressManager

	db *sql.DB
}

// NewServiceContext 创建快照服务上下文
func NewServiceContext(c config.SnapshotConfig) (*ServiceContext, error) {
	// 1. 账本网关客户端
	gwOpts := []gateway.Option{}
	if c.GatewayConf.ChunkConcurrency > 0 {
		gwOpts = append(gwOpts, gateway.WithChunkConcurrency(c.GatewayConf.ChunkConcurrency))
	}
	if c.GatewayConf.TimeoutS > 0 {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(&http.Client{
			Timeout: time.Duration(c.GatewayConf.TimeoutS) * time.Second,
		}))
	}
	gw := gateway.NewClient(c.GatewayConf.Endpoint, gwOpts...)

	// 2. 协议解析器
	regCfg, err := buildRegistryConfig(c.Protocols)
	if err != nil {
		return nil, err
	}
	resolvers, err := positions.Build(regCfg)
	if err != nil {
		return nil, err
	}

	validators, err := buildValidators(c.Validators)
	if err != nil {
		return nil, err
	}

	// 3. 报价缓存：回源走历史缓存的最新点
	history := cache.NewQuoteHistory()
	quoteCache, err := cache.NewQuoteCache(func(resource types.Address) (decimal.Decimal, error) {
		if p, ok := history.QuoteAt(resource, time.Now().Unix()); ok {
			return p, nil
		}
		return decimal.Zero, fmt.Errorf("no quote for %s", resource)
	})
	if err != nil {
		return nil, err
	}

	// 4. Kafka 生产者
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}

	// 5. Redis 客户端（批次判重快路径）
	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr, // eg: "127.0.0.1:6379"
	})

	// 6. PostgreSQL 连接（批次进度落库）
	db, err := sql.Open("postgres", c.PostgresDSN)
	if err != nil {
		logger.Errorf("PostgreSQL 连接失败: %v", err)
		return nil, err
	}

	// 7. 进度管理器（Redis + DB + 缓冲）
	pm := progress.NewProgressManager(
		progress.NewRedisProgressStore(rdb),
		progress.NewDBProgressStore(db),
	)

	ctx := &ServiceContext{
		Config:          c,
		Gateway:         gw,
		Orchestrator:    snapshot.New(gw, resolvers, c.Snapshot.BatchSize),
		Validators:      validators,
		QuoteHistory:    history,
		QuoteCache:      quoteCache,
		Producer:        producer,
		ProgressManager: pm,
		db:              db,
	}

	logger.Infof("[ServiceContext] 初始化完成: resolvers=%d validators=%d", len(resolvers), len(validators))
	return ctx, nil
}

// PriceWindow 把配置的窗口转为估值参数，未配置时返回 nil（无界）
func (sc *ServiceContext) PriceWindow() (*amm.PriceWindow, error) {
	w := sc.Config.Snapshot.PriceWindow
	if w.Lower == "" && w.Upper == "" {
		return nil, nil
	}
	out := &amm.PriceWindow{}
	var err error
	if w.Lower != "" {
		if out.Lower, err = decimal.NewFromString(w.Lower); err != nil {
			return nil, fmt.Errorf("invalid price window lower %q: %w", w.Lower, err)
		}
	}
	if w.Upper != "" {
		if out.Upper, err = decimal.NewFromString(w.Upper); err != nil {
			return nil, fmt.Errorf("invalid price window upper %q: %w", w.Upper, err)
		}
	}
	return out, nil
}

// Close 关闭服务上下文中的资源
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		sc.Producer.Close()
	}
	if sc.db != nil {
		_ = sc.db.Close()
	}
}

func buildRegistryConfig(p config.ProtocolsConfig) (positions.Config, error) {
	var out positions.Config

	for _, m := range p.Lending {
		market, err := types.TryAddressFromString(m.MarketComponent)
		if err != nil {
			return out, fmt.Errorf("lending %s: %w", m.Name, err)
		}
		cdp, err := types.TryAddressFromString(m.CdpResource)
		if err != nil {
			return out, fmt.Errorf("lending %s: %w", m.Name, err)
		}
		kvs, err := types.TryAddressFromString(m.PoolStatesKvs)
		if err != nil {
			return out, fmt.Errorf("lending %s: %w", m.Name, err)
		}
		out.Lending = append(out.Lending, lending.MarketConfig{
			Name:            m.Name,
			MarketComponent: market,
			CdpResource:     cdp,
			PoolStatesKvs:   kvs,
		})
	}

	for _, sp := range p.SimplePools {
		cfg := simplepool.Config{Name: sp.Name}
		for _, pool := range sp.Pools {
			comp, err := types.TryAddressFromString(pool.Component)
			if err != nil {
				return out, fmt.Errorf("simple pool %s: %w", sp.Name, err)
			}
			lp, err := types.TryAddressFromString(pool.LpResource)
			if err != nil {
				return out, fmt.Errorf("simple pool %s: %w", sp.Name, err)
			}
			cfg.Pools = append(cfg.Pools, simplepool.PoolConfig{Component: comp, LpResource: lp})
		}
		out.SimplePools = append(out.SimplePools, cfg)
	}

	for _, cp := range p.Concentrated {
		cfg := clpool.Config{Name: cp.Name}
		for _, pool := range cp.Pools {
			comp, err := types.TryAddressFromString(pool.Component)
			if err != nil {
				return out, fmt.Errorf("concentrated pool %s: %w", cp.Name, err)
			}
			nft, err := types.TryAddressFromString(pool.PositionNftResource)
			if err != nil {
				return out, fmt.Errorf("concentrated pool %s: %w", cp.Name, err)
			}
			cfg.Pools = append(cfg.Pools, clpool.PoolConfig{Component: comp, PositionNftResource: nft})
		}
		out.Concentrated = append(out.Concentrated, cfg)
	}

	return out, nil
}

func buildValidators(list []config.ValidatorConfig) ([]common.ValidatorMeta, error) {
	out := make([]common.ValidatorMeta, 0, len(list))
	for _, v := range list {
		addr, err := types.TryAddressFromString(v.Address)
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", v.Address, err)
		}
		lsu, err := types.TryAddressFromString(v.LsuResource)
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", v.Address, err)
		}
		claim, err := types.TryAddressFromString(v.ClaimNftResource)
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", v.Address, err)
		}
		out = append(out, common.ValidatorMeta{
			Address:          addr,
			LsuResource:      lsu,
			ClaimNftResource: claim,
		})
	}
	return out, nil
}

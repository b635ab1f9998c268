package config

import (
	"defi-snapshot-xrd/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// GatewayConfig 表示账本网关客户端配置
type GatewayConfig struct {
	Endpoint         string `yaml:"endpoint"`          // 网关地址，例如 https://mainnet.radixdlt.com
	TimeoutS         int    `yaml:"timeout_s"`         // 单次 HTTP 请求超时（秒）
	ChunkConcurrency int    `yaml:"chunk_concurrency"` // 同时在途的分块请求数
}

// PriceServiceConfig 表示价格服务配置
type PriceServiceConfig struct {
	Endpoint      string  `yaml:"endpoint"`        // 价格服务地址，例如 http://price.service.local
	SyncIntervalS int     `yaml:"sync_interval_s"` // 同步价格的时间间隔（秒）
	XrdPrice      float64 `yaml:"xrd_price"`       // 初始 XRD 价格配置（服务不可用时的兜底）
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Snapshot string `yaml:"snapshot"` // 账户快照的 Kafka topic
	} `yaml:"topics"`

	Partitions struct {
		Snapshot int `yaml:"snapshot"` // snapshot topic 的分区数
	} `yaml:"partitions"`
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	BatchDispatchTimeoutMs int `yaml:"batch_dispatch_timeout_ms"` // 每个批次的处理最大耗时（Kafka + Redis + DB）
	SnapshotSendTimeoutMs  int `yaml:"snapshot_send_timeout_ms"`  // 单条快照发送到 Kafka 并等待 ack 的超时时间
}

// ValidatorConfig 是一条验证人元数据配置
type ValidatorConfig struct {
	Address          string `yaml:"address"`            // 验证人组件地址
	LsuResource      string `yaml:"lsu_resource"`       // 流动质押单位资源地址
	ClaimNftResource string `yaml:"claim_nft_resource"` // 解押领取 NFT 资源地址
}

// LendingMarketConfig 是一个借贷市场（CDP 协议实例）的配置
type LendingMarketConfig struct {
	Name            string `yaml:"name"`              // 协议名，作为快照里的注册表 key
	MarketComponent string `yaml:"market_component"`  // 市场主组件地址
	CdpResource     string `yaml:"cdp_resource"`      // CDP NFT 资源地址
	PoolStatesKvs   string `yaml:"pool_states_kvs"`   // 池状态 KeyValueStore 地址
}

// SimplePoolConfig 是一个恒定比例池协议实例的配置
type SimplePoolConfig struct {
	Name  string `yaml:"name"` // 协议名
	Pools []struct {
		Component  string `yaml:"component"`   // 池组件地址
		LpResource string `yaml:"lp_resource"` // LP（pool unit）资源地址
	} `yaml:"pools"`
}

// ConcentratedPoolConfig 是一个集中流动性协议实例的配置
type ConcentratedPoolConfig struct {
	Name  string `yaml:"name"` // 协议名
	Pools []struct {
		Component           string `yaml:"component"`             // 池组件地址
		PositionNftResource string `yaml:"position_nft_resource"` // 头寸 NFT 资源地址
	} `yaml:"pools"`
}

// ProtocolsConfig 汇总所有已接入协议的配置
type ProtocolsConfig struct {
	Lending      []LendingMarketConfig    `yaml:"lending"`
	SimplePools  []SimplePoolConfig       `yaml:"simple_pools"`
	Concentrated []ConcentratedPoolConfig `yaml:"concentrated"`
}

// PriceWindowConfig 是集中流动性估值的价格窗口（十进制字符串，空表示无界）
type PriceWindowConfig struct {
	Lower string `yaml:"lower"`
	Upper string `yaml:"upper"`
}

// SnapshotConfig 是主配置结构体，用于驱动快照服务
type SnapshotConfig struct {
	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	GatewayConf       GatewayConfig       `yaml:"gateway"`        // 账本网关配置
	PriceServiceConf  PriceServiceConfig  `yaml:"price_service"`  // 价格服务配置
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // Kafka 生产者配置
	TimeConf          TimeConfig          `yaml:"time_conf"`      // 时间相关配置

	RedisAddr    string `yaml:"redis_addr"`   // Redis 地址
	PostgresDSN  string `yaml:"postgres_dsn"` // PostgreSQL 数据源
	ProgressConf struct {
		FlushIntervalS int    `yaml:"flush_interval_s"` // 进度记录落库间隔（秒）
		GCIntervalS    int    `yaml:"gc_interval_s"`    // 进度 GC 间隔（秒）
		RetainVersions uint64 `yaml:"retain_versions"`  // GC 保留的最近高度区间
	} `yaml:"progress"` // 批次进度管理配置

	// 快照调度相关配置
	Snapshot struct {
		IntervalS    int               `yaml:"interval_s"`    // 两轮快照的时间间隔（秒）
		BatchSize    int               `yaml:"batch_size"`    // 单批处理的账户数
		AccountsFile string            `yaml:"accounts_file"` // 账户地址清单文件（每行一个地址）
		PriceWindow  PriceWindowConfig `yaml:"price_window"`  // 集中流动性估值窗口
	} `yaml:"snapshot"`

	Validators []ValidatorConfig `yaml:"validators"` // 验证人元数据清单
	Protocols  ProtocolsConfig   `yaml:"protocols"`  // 已接入协议配置
}

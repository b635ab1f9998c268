package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYaml = `
logger:
  format: json
  log_dir: logs
  level: warn
  compress: true

gateway:
  endpoint: https://mainnet.radixdlt.com
  timeout_s: 30
  chunk_concurrency: 4

price_service:
  endpoint: http://127.0.0.1:8081
  sync_interval_s: 30
  xrd_price: 0.02

kafka_producer:
  brokers: 127.0.0.1:9092
  topics:
    snapshot: defi_snapshot
  partitions:
    snapshot: 8

time_conf:
  batch_dispatch_timeout_ms: 600000
  snapshot_send_timeout_ms: 10000

redis_addr: 127.0.0.1:6379
postgres_dsn: postgres://localhost/snapshot

progress:
  flush_interval_s: 5
  gc_interval_s: 3600
  retain_versions: 10000000

snapshot:
  interval_s: 3600
  batch_size: 5000
  accounts_file: etc/accounts.txt
  price_window:
    lower: "0.5"
    upper: "2"

validators:
  - address: validator_rdx1sd5368vqdmjk0y2w7ymdts02cz9wq9s4t0cfmlf00hs83fghq0fmff6
    lsu_resource: resource_rdx1thksg5ng70g9mmy9ne7wz0sc7auzrrwy7fmgcxzel2gvp8pj0xxfmf
    claim_nft_resource: resource_rdx1ngekvyag42r0xkhy2ds08fcl7f2ncgc0g74yg6wpeeyc4vtj03sa9f

protocols:
  lending:
    - name: root_finance
      market_component: component_rdx1cqmarket
      cdp_resource: resource_rdx1nqcdpnft
      pool_states_kvs: internal_keyvaluestore_rdx1kvsp00l
  simple_pools:
    - name: ociswap
      pools:
        - component: component_rdx1czp00l
          lp_resource: resource_rdx1thzlp00
`

func TestSnapshotConfigUnmarshal(t *testing.T) {
	var c SnapshotConfig
	require.NoError(t, yaml.Unmarshal([]byte(sampleYaml), &c))

	assert.Equal(t, "json", c.LogConf.Format)
	assert.Equal(t, "warn", c.LogConf.Level)
	assert.True(t, c.LogConf.Compress)

	assert.Equal(t, "https://mainnet.radixdlt.com", c.GatewayConf.Endpoint)
	assert.Equal(t, 4, c.GatewayConf.ChunkConcurrency)

	assert.Equal(t, "defi_snapshot", c.KafkaProducerConf.Topics.Snapshot)
	assert.Equal(t, 8, c.KafkaProducerConf.Partitions.Snapshot)

	assert.Equal(t, uint64(10000000), c.ProgressConf.RetainVersions)

	assert.Equal(t, 5000, c.Snapshot.BatchSize)
	assert.Equal(t, "0.5", c.Snapshot.PriceWindow.Lower)
	assert.Equal(t, "2", c.Snapshot.PriceWindow.Upper)

	require.Len(t, c.Validators, 1)
	assert.Equal(t, "resource_rdx1thksg5ng70g9mmy9ne7wz0sc7auzrrwy7fmgcxzel2gvp8pj0xxfmf", c.Validators[0].LsuResource)

	require.Len(t, c.Protocols.Lending, 1)
	assert.Equal(t, "internal_keyvaluestore_rdx1kvsp00l", c.Protocols.Lending[0].PoolStatesKvs)
	require.Len(t, c.Protocols.SimplePools, 1)
	require.Len(t, c.Protocols.SimplePools[0].Pools, 1)
	assert.Equal(t, "resource_rdx1thzlp00", c.Protocols.SimplePools[0].Pools[0].LpResource)
}

func TestLogConfigToLogOption(t *testing.T) {
	c := LogConfig{Format: "console", LogDir: "logs", Level: "debug", Compress: true}
	opt := c.ToLogOption()
	assert.Equal(t, "console", opt.Format)
	assert.Equal(t, "logs", opt.LogDir)
	assert.Equal(t, "debug", opt.Level)
	assert.True(t, opt.Compress)
}

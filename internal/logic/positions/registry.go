// Package positions 汇集各协议的头寸解析器。
// 新协议接入：在对应子包实现 common.Resolver，在 Build 里挂上即可。
package positions

import (
	"fmt"

	"defi-snapshot-xrd/internal/logic/positions/clpool"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/logic/positions/lending"
	"defi-snapshot-xrd/internal/logic/positions/simplepool"
	"defi-snapshot-xrd/internal/logic/positions/staking"
)

// Config 汇总全部协议实例的接入配置。
// 原生质押始终启用（验证人元数据由调用方随批次提供），其余按配置挂载。
type Config struct {
	Lending      []lending.MarketConfig
	SimplePools  []simplepool.Config
	Concentrated []clpool.Config
}

// Build 在启动期一次性装配全部解析器，协议名重复视为配置错误。
func Build(cfg Config) ([]common.Resolver, error) {
	resolvers := []common.Resolver{staking.New()}
	for _, m := range cfg.Lending {
		resolvers = append(resolvers, lending.New(m))
	}
	for _, p := range cfg.SimplePools {
		resolvers = append(resolvers, simplepool.New(p))
	}
	for _, p := range cfg.Concentrated {
		resolvers = append(resolvers, clpool.New(p))
	}

	seen := make(map[string]struct{}, len(resolvers))
	for _, r := range resolvers {
		if _, dup := seen[r.Protocol()]; dup {
			return nil, fmt.Errorf("positions: duplicate protocol %q", r.Protocol())
		}
		seen[r.Protocol()] = struct{}{}
	}
	return resolvers, nil
}

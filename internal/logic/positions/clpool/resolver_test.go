package clpool

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

const (
	accountA = types.Address("account_rdx1qqalpha")
	poolComp = types.Address("component_rdx1cqclp00l")
	nftRes   = types.Address("resource_rdx1nqp0snft")
	xRes     = types.Address("resource_rdx1t5kmyj54jt85malva7fxdrnpvgfgs623yt7ywdaval25vrdlmnwe97")
	yRes     = types.Address("resource_rdx1th88qcj5syl9ghka2g9l7tw497vy5x6zaatyvgfkwcfe8n9jt2npww")
)

// 对称区间基准值：liquidity=1e6、当前价 1、tick ±50
const symmetricAmount = "2496.752922953686956487"

type fakeGateway struct {
	entityDetails   func(addresses []types.Address) ([]gateway.EntityDetailsItem, error)
	nonFungibleData func(resource types.Address, ids []string) ([]gateway.NonFungibleData, error)
	componentStates func(components []types.Address) (map[types.Address]gateway.ComponentState, error)
}

func (f *fakeGateway) EntityDetails(ctx context.Context, anchor *gateway.Anchor, addresses []types.Address) ([]gateway.EntityDetailsItem, error) {
	return f.entityDetails(addresses)
}

func (f *fakeGateway) FungibleBalances(ctx context.Context, anchor *gateway.Anchor, accounts []types.Address) ([]gateway.FungibleBalance, error) {
	panic("unexpected FungibleBalances call")
}

func (f *fakeGateway) NonFungibleData(ctx context.Context, anchor *gateway.Anchor, resource types.Address, localIds []string) ([]gateway.NonFungibleData, error) {
	return f.nonFungibleData(resource, localIds)
}

func (f *fakeGateway) KeyValueStoreEntries(ctx context.Context, anchor *gateway.Anchor, store types.Address) ([]gateway.KeyValueEntry, error) {
	panic("unexpected KeyValueStoreEntries call")
}

func (f *fakeGateway) ComponentStates(ctx context.Context, anchor *gateway.Anchor, components []types.Address) (map[types.Address]gateway.ComponentState, error) {
	return f.componentStates(components)
}

func mustValue(t *testing.T, raw string) sbor.Value {
	t.Helper()
	var v sbor.Value
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func poolStateJSON(priceSqrt string) string {
	return fmt.Sprintf(`{
		"kind": "Tuple",
		"type_name": "PrecisionPool",
		"fields": [
			{"kind": "Reference", "field_name": "x_address", "value": "%s"},
			{"kind": "Reference", "field_name": "y_address", "value": "%s"},
			{"kind": "PreciseDecimal", "field_name": "price_sqrt", "value": "%s"}
		]
	}`, xRes, yRes, priceSqrt)
}

func positionJSON(liquidity string, left, right int32) string {
	return fmt.Sprintf(`{
		"kind": "Tuple",
		"type_name": "LiquidityPosition",
		"fields": [
			{"kind": "PreciseDecimal", "field_name": "liquidity", "value": "%s"},
			{"kind": "I32", "field_name": "left_bound", "value": "%d"},
			{"kind": "I32", "field_name": "right_bound", "value": "%d"}
		]
	}`, liquidity, left, right)
}

func poolGateway(t *testing.T, priceSqrt, liquidity string, left, right int32) *fakeGateway {
	return &fakeGateway{
		componentStates: func(components []types.Address) (map[types.Address]gateway.ComponentState, error) {
			assert.Equal(t, []types.Address{poolComp}, components)
			return map[types.Address]gateway.ComponentState{
				poolComp: {Address: poolComp, State: mustValue(t, poolStateJSON(priceSqrt))},
			}, nil
		},
		entityDetails: func(addresses []types.Address) ([]gateway.EntityDetailsItem, error) {
			var items []gateway.EntityDetailsItem
			for _, a := range addresses {
				items = append(items, gateway.EntityDetailsItem{
					Address: string(a),
					Details: &gateway.EntityDetails{Type: "FungibleResource", Divisibility: 18},
				})
			}
			return items, nil
		},
		nonFungibleData: func(resource types.Address, ids []string) ([]gateway.NonFungibleData, error) {
			assert.Equal(t, nftRes, resource)
			assert.Equal(t, []string{"#3#"}, ids)
			return []gateway.NonFungibleData{{
				Resource: nftRes,
				LocalId:  "#3#",
				Data:     mustValue(t, positionJSON(liquidity, left, right)),
			}}, nil
		},
	}
}

func newContext(gw common.Gateway, window *amm.PriceWindow) *common.ResolverContext {
	return &common.ResolverContext{
		Anchor:  gateway.ResolveAnchorAtVersion(100),
		Gateway: gw,
		Holdings: common.BuildHoldingsIndex([]types.Address{accountA}, nil, []gateway.NonFungibleHolding{
			{Account: accountA, Resource: nftRes, LocalIds: []string{"#3#"}},
		}),
		Window: window,
	}
}

func poolConfig() Config {
	return Config{Pools: []PoolConfig{{Component: poolComp, PositionNftResource: nftRes}}}
}

func TestResolvePosition_InRange(t *testing.T) {
	gw := poolGateway(t, "1", "1000000", -50, 50)

	out, err := New(poolConfig()).Resolve(context.Background(), newContext(gw, nil))
	require.NoError(t, err)
	require.Len(t, out[accountA], 1)

	pos := out[accountA][0]
	assert.Equal(t, common.KindConcentratedPool, pos.Kind)
	assert.Equal(t, poolComp, pos.Component)
	assert.Equal(t, "#3#", pos.NftLocalId)
	assert.Nil(t, pos.OutsideWindow)

	want := decimal.RequireFromString(symmetricAmount)
	require.Len(t, pos.Entries, 2)
	assert.Equal(t, xRes, pos.Entries[0].Resource)
	assert.True(t, pos.Entries[0].Amount.Equal(want), "x=%s", pos.Entries[0].Amount)
	assert.Equal(t, yRes, pos.Entries[1].Resource)
	assert.True(t, pos.Entries[1].Amount.Equal(want), "y=%s", pos.Entries[1].Amount)
}

// 窗口 [当前价, ∞)：X 全部在窗内，Y 全部在窗外
func TestResolvePosition_WithWindow(t *testing.T) {
	gw := poolGateway(t, "1", "1000000", -50, 50)
	window := &amm.PriceWindow{Lower: decimal.NewFromInt(1)}

	out, err := New(poolConfig()).Resolve(context.Background(), newContext(gw, window))
	require.NoError(t, err)
	require.Len(t, out[accountA], 1)

	pos := out[accountA][0]
	want := decimal.RequireFromString(symmetricAmount)

	require.Len(t, pos.Entries, 2)
	assert.True(t, pos.Entries[0].Amount.Equal(want), "xWithin=%s", pos.Entries[0].Amount)
	assert.True(t, pos.Entries[1].Amount.IsZero(), "yWithin=%s", pos.Entries[1].Amount)

	require.Len(t, pos.OutsideWindow, 2)
	assert.True(t, pos.OutsideWindow[0].Amount.IsZero(), "xOutside=%s", pos.OutsideWindow[0].Amount)
	assert.True(t, pos.OutsideWindow[1].Amount.Equal(want), "yOutside=%s", pos.OutsideWindow[1].Amount)
}

// 头寸 NFT 的边界非法时报错并带上头寸定位信息
func TestResolvePosition_InvalidBounds(t *testing.T) {
	gw := poolGateway(t, "1", "1000000", 50, -50)

	_, err := New(poolConfig()).Resolve(context.Background(), newContext(gw, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#3#")
}

func TestResolvePosition_NoHolders(t *testing.T) {
	gw := &fakeGateway{}

	rc := &common.ResolverContext{
		Anchor:   gateway.ResolveAnchorAtVersion(100),
		Gateway:  gw,
		Holdings: common.BuildHoldingsIndex([]types.Address{accountA}, nil, nil),
	}
	out, err := New(poolConfig()).Resolve(context.Background(), rc)
	require.NoError(t, err)
	assert.Empty(t, out)
}

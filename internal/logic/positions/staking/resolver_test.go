package staking

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

const (
	accountA  = types.Address("account_rdx1qqalpha")
	accountB  = types.Address("account_rdx1qqgamma")
	validator = types.Address("validator_rdx1sd5368vqdmjk0y2w7ymdts02cz9c52858gpyny56xdvzuheepuhqf0")
	lsuRes    = types.Address("resource_rdx1lsuqaa")
	claimRes  = types.Address("resource_rdx1cla4ms")
)

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

func validatorStateJSON(stakedXrd string) string {
	return fmt.Sprintf(`{
		"kind": "Tuple",
		"type_name": "ValidatorSubstate",
		"fields": [{"kind": "Decimal", "field_name": "staked_xrd", "value": "%s"}]
	}`, stakedXrd)
}

func claimJSON(epoch uint64, amount string) string {
	return fmt.Sprintf(`{
		"kind": "Tuple",
		"type_name": "UnstakeData",
		"fields": [
			{"kind": "U64", "field_name": "claim_epoch", "value": "%d"},
			{"kind": "Decimal", "field_name": "claim_amount", "value": "%s"}
		]
	}`, epoch, amount)
}

func validatorMeta() []common.ValidatorMeta {
	return []common.ValidatorMeta{{
		Address:          validator,
		LsuResource:      lsuRes,
		ClaimNftResource: claimRes,
	}}
}

func newContext(gw common.Gateway, fungibles []gateway.FungibleBalance, nonFungibles []gateway.NonFungibleHolding) *common.ResolverContext {
	return &common.ResolverContext{
		Anchor:     gateway.ResolveAnchorAtVersion(100),
		Gateway:    gw,
		Holdings:   common.BuildHoldingsIndex([]types.Address{accountA, accountB}, fungibles, nonFungibles),
		Validators: validatorMeta(),
	}
}

func stdGateway(t *testing.T, stakedXrd, lsuSupply string, claims map[string]string) *fakeGateway {
	return &fakeGateway{
		componentStates: func(components []types.Address) (map[types.Address]gateway.ComponentState, error) {
			assert.Equal(t, []types.Address{validator}, components)
			return map[types.Address]gateway.ComponentState{
				validator: {Address: validator, State: mustValue(t, validatorStateJSON(stakedXrd))},
			}, nil
		},
		entityDetails: func(addresses []types.Address) ([]gateway.EntityDetailsItem, error) {
			assert.Equal(t, []types.Address{lsuRes}, addresses)
			return []gateway.EntityDetailsItem{{
				Address: string(lsuRes),
				Details: &gateway.EntityDetails{Type: "FungibleResource", TotalSupply: lsuSupply},
			}}, nil
		},
		nonFungibleData: func(resource types.Address, ids []string) ([]gateway.NonFungibleData, error) {
			assert.Equal(t, claimRes, resource)
			var out []gateway.NonFungibleData
			for _, id := range ids {
				amount, ok := claims[id]
				if !ok {
					continue
				}
				out = append(out, gateway.NonFungibleData{
					Resource: claimRes,
					LocalId:  id,
					Data:     mustValue(t, claimJSON(1200, amount)),
				})
			}
			return out, nil
		},
	}
}

func TestResolveStaked(t *testing.T) {
	// 赎回率 = 1500 / 1000 = 1.5
	gw := stdGateway(t, "1500", "1000", nil)

	rc := newContext(gw, []gateway.FungibleBalance{
		{Account: accountA, Resource: lsuRes, Amount: decimal.RequireFromString("200")},
	}, nil)

	out, err := New().Resolve(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, out[accountA], 1)

	pos := out[accountA][0]
	assert.Equal(t, common.KindStaking, pos.Kind)
	assert.Equal(t, validator, pos.Validator)
	require.Len(t, pos.Entries, 1)
	assert.Equal(t, consts.XrdResource, pos.Entries[0].Resource)
	assert.True(t, pos.Entries[0].Amount.Equal(decimal.RequireFromString("300")))
}

// LSU 总量为 0 时赎回率定义为 0：持有 LSU 也是零头寸，不报错
func TestResolveStaked_ZeroSupply(t *testing.T) {
	gw := stdGateway(t, "0", "0", nil)

	rc := newContext(gw, []gateway.FungibleBalance{
		{Account: accountA, Resource: lsuRes, Amount: decimal.RequireFromString("200")},
	}, nil)

	out, err := New().Resolve(context.Background(), rc)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolvePendingClaims(t *testing.T) {
	gw := stdGateway(t, "1500", "1000", map[string]string{
		"#1#": "10.5",
		"#2#": "4.5",
	})

	rc := newContext(gw, nil, []gateway.NonFungibleHolding{
		{Account: accountB, Resource: claimRes, LocalIds: []string{"#1#", "#2#"}},
	})

	out, err := New().Resolve(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, out[accountB], 1)

	pos := out[accountB][0]
	assert.Equal(t, common.KindStakingClaim, pos.Kind)
	assert.Equal(t, validator, pos.Validator)
	require.Len(t, pos.Entries, 1)
	// 两张解押 NFT 的数量求和，到期 epoch 不在本层过滤
	assert.True(t, pos.Entries[0].Amount.Equal(decimal.RequireFromString("15")))
}

// 没有任何账户涉及该验证人时不应发起任何网关请求
func TestResolve_NoInvolvedValidators(t *testing.T) {
	gw := &fakeGateway{}

	rc := newContext(gw, nil, nil)
	out, err := New().Resolve(context.Background(), rc)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// 点名查询的验证人在锚定高度没有状态是一致性错误
func TestResolve_MissingValidatorState(t *testing.T) {
	gw := stdGateway(t, "1500", "1000", nil)
	gw.componentStates = func(components []types.Address) (map[types.Address]gateway.ComponentState, error) {
		return map[types.Address]gateway.ComponentState{}, nil
	}

	rc := newContext(gw, []gateway.FungibleBalance{
		{Account: accountA, Resource: lsuRes, Amount: decimal.RequireFromString("1")},
	}, nil)

	_, err := New().Resolve(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state at anchor")
}

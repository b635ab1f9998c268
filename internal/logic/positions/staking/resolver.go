// Package staking 解析原生质押头寸：
// 在押本金 = LSU 余额 × 验证人赎回率（质押 XRD ÷ LSU 总量），
// 待领取 = 解押领取 NFT 上记录的数量之和（到期与否不在本层区分）。
package staking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

const protocolName = "native_staking"

// validatorStateSchema 匹配验证人组件状态，只取当前质押总量
var validatorStateSchema = &sbor.Schema{
	Fields: []sbor.FieldSchema{
		{Name: "staked_xrd", Kind: sbor.KindDecimal},
	},
}

// claimSchema 匹配解押领取 NFT 的数据
var claimSchema = &sbor.Schema{
	TypeName: "UnstakeData",
	Fields: []sbor.FieldSchema{
		{Name: "claim_epoch", Kind: sbor.KindU64},
		{Name: "claim_amount", Kind: sbor.KindDecimal},
	},
}

type resolver struct{}

// New 构造原生质押头寸解析器。验证人元数据由 ResolverContext 提供。
func New() common.Resolver {
	return resolver{}
}

func (resolver) Protocol() string {
	return protocolName
}

func (resolver) Resolve(ctx context.Context, rc *common.ResolverContext) (map[types.Address][]common.ProtocolPosition, error) {
	out := make(map[types.Address][]common.ProtocolPosition)

	// 只处理本批次内实际被持有的验证人，避免全量回源
	var involved []common.ValidatorMeta
	for _, v := range rc.Validators {
		if len(rc.Holdings.HoldersOf(v.LsuResource)) > 0 ||
			len(rc.Holdings.NonFungibleHoldersOf(v.ClaimNftResource)) > 0 {
			involved = append(involved, v)
		}
	}
	if len(involved) == 0 {
		return out, nil
	}

	ratios, err := redemptionRatios(ctx, rc, involved)
	if err != nil {
		return nil, err
	}

	for _, v := range involved {
		for _, h := range rc.Holdings.HoldersOf(v.LsuResource) {
			staked := h.Amount.Mul(ratios[v.Address]).Truncate(consts.XrdDivisibility)
			if staked.IsZero() {
				continue
			}
			out[h.Account] = append(out[h.Account], common.ProtocolPosition{
				Protocol:  protocolName,
				Kind:      common.KindStaking,
				Component: v.Address,
				Validator: v.Address,
				Entries:   []common.PositionEntry{{Resource: consts.XrdResource, Amount: staked}},
			})
		}

		claims, err := pendingClaims(ctx, rc, v)
		if err != nil {
			return nil, err
		}
		for _, h := range rc.Holdings.NonFungibleHoldersOf(v.ClaimNftResource) {
			total := decimal.Zero
			for _, id := range h.LocalIds {
				total = total.Add(claims[id])
			}
			if total.IsZero() {
				continue
			}
			out[h.Account] = append(out[h.Account], common.ProtocolPosition{
				Protocol:  protocolName,
				Kind:      common.KindStakingClaim,
				Component: v.Address,
				Validator: v.Address,
				Entries:   []common.PositionEntry{{Resource: consts.XrdResource, Amount: total}},
			})
		}
	}
	return out, nil
}

// redemptionRatios 计算每个验证人的 LSU → XRD 赎回率。
// LSU 总量为 0 的验证人赎回率定义为 0。
func redemptionRatios(
	ctx context.Context,
	rc *common.ResolverContext,
	validators []common.ValidatorMeta,
) (map[types.Address]decimal.Decimal, error) {
	addrs := make([]types.Address, 0, len(validators))
	lsuRes := make([]types.Address, 0, len(validators))
	for _, v := range validators {
		addrs = append(addrs, v.Address)
		lsuRes = append(lsuRes, v.LsuResource)
	}

	states, err := rc.Gateway.ComponentStates(ctx, rc.Anchor, addrs)
	if err != nil {
		return nil, fmt.Errorf("staking: fetch validator states: %w", err)
	}

	details, err := rc.Gateway.EntityDetails(ctx, rc.Anchor, lsuRes)
	if err != nil {
		return nil, fmt.Errorf("staking: fetch lsu supplies: %w", err)
	}
	supplies := make(map[types.Address]decimal.Decimal, len(details))
	for _, item := range details {
		if item.Details == nil || item.Details.TotalSupply == "" {
			continue
		}
		supply, err := decimal.NewFromString(item.Details.TotalSupply)
		if err != nil {
			return nil, fmt.Errorf("staking: lsu %s total supply %q: %w", item.Address, item.Details.TotalSupply, err)
		}
		supplies[types.Address(item.Address)] = supply
	}

	ratios := make(map[types.Address]decimal.Decimal, len(validators))
	for _, v := range validators {
		state, ok := states[v.Address]
		if !ok {
			// 明确点名查询的验证人不存在不是「未部署」，是一致性问题
			return nil, fmt.Errorf("staking: validator %s has no state at anchor", v.Address)
		}
		rec, err := sbor.Parse(validatorStateSchema, state.State)
		if err != nil {
			return nil, fmt.Errorf("staking: validator %s state: %w", v.Address, err)
		}
		staked, err := rec.Decimal("staked_xrd")
		if err != nil {
			return nil, fmt.Errorf("staking: validator %s state: %w", v.Address, err)
		}

		supply := supplies[v.LsuResource]
		if supply.IsZero() {
			ratios[v.Address] = decimal.Zero
			continue
		}
		ratios[v.Address] = staked.DivRound(supply, 36)
	}
	return ratios, nil
}

// pendingClaims 拉取某验证人下全部解押 NFT 并解码出待领取数量
func pendingClaims(
	ctx context.Context,
	rc *common.ResolverContext,
	v common.ValidatorMeta,
) (map[string]decimal.Decimal, error) {
	holders := rc.Holdings.NonFungibleHoldersOf(v.ClaimNftResource)
	if len(holders) == 0 {
		return nil, nil
	}

	var localIds []string
	for _, h := range holders {
		localIds = append(localIds, h.LocalIds...)
	}
	items, err := rc.Gateway.NonFungibleData(ctx, rc.Anchor, v.ClaimNftResource, localIds)
	if err != nil {
		return nil, fmt.Errorf("staking: fetch claim nft data for %s: %w", v.Address, err)
	}

	claims := make(map[string]decimal.Decimal, len(items))
	for _, it := range items {
		if it.IsBurned {
			continue
		}
		rec, err := sbor.Parse(claimSchema, it.Data)
		if err != nil {
			return nil, fmt.Errorf("staking: claim nft %s/%s: %w", v.ClaimNftResource, it.LocalId, err)
		}
		amount, err := rec.Decimal("claim_amount")
		if err != nil {
			return nil, fmt.Errorf("staking: claim nft %s/%s: %w", v.ClaimNftResource, it.LocalId, err)
		}
		claims[it.LocalId] = amount.Truncate(consts.XrdDivisibility)
	}
	return claims, nil
}

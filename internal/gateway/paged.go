package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

// fetchChunked 把 keys 按 chunkSize 切块并发请求，再按块序拼接结果。
// 任何一块失败整个取数失败（errgroup 同时取消其余在途块），不会静默丢块。
func fetchChunked[K any, R any](
	ctx context.Context,
	keys []K,
	chunkSize int,
	concurrency int,
	fn func(ctx context.Context, chunk []K) ([]R, error),
) ([]R, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("gateway: invalid chunk size %d", chunkSize)
	}

	chunkCount := (len(keys) + chunkSize - 1) / chunkSize
	chunkResults := make([][]R, chunkCount)

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i := 0; i < chunkCount; i++ {
		idx := i
		start := idx * chunkSize
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		g.Go(func() error {
			results, err := fn(gctx, chunk)
			if err != nil {
				return err
			}
			chunkResults[idx] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []R
	for _, rs := range chunkResults {
		merged = append(merged, rs...)
	}
	return merged, nil
}

// followCursor 顺序跟随游标直到翻完。fetch 返回 (本页条目, 下一页游标)。
func followCursor[R any](
	ctx context.Context,
	fetch func(ctx context.Context, cursor string) ([]R, string, error),
) ([]R, error) {
	var all []R
	cursor := ""
	for {
		items, next, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// EntityDetails 查询一组实体在锚定高度的详情（20 个/块并发）。
// 显式点名的地址不存在时 404 会原样上抛，由调用方决定语义。
func (c *Client) EntityDetails(ctx context.Context, anchor *Anchor, addresses []types.Address) ([]EntityDetailsItem, error) {
	return fetchChunked(ctx, addresses, consts.EntityDetailsChunkSize, c.chunkConcurrency,
		func(ctx context.Context, chunk []types.Address) ([]EntityDetailsItem, error) {
			req := &entityDetailsRequest{
				Addresses:     types.AddressStrings(chunk),
				AtLedgerState: anchor.Selector(),
			}
			var resp entityDetailsResponse
			if err := c.post(ctx, pathEntityDetails, req, &resp); err != nil {
				return nil, err
			}
			return resp.Items, nil
		})
}

// FungibleBalances 拉取一组账户的全部可分资源余额，自动翻页并在源头丢弃零余额。
func (c *Client) FungibleBalances(ctx context.Context, anchor *Anchor, accounts []types.Address) ([]FungibleBalance, error) {
	items, err := c.EntityDetails(ctx, anchor, accounts)
	if err != nil {
		return nil, err
	}

	var all []FungibleBalance
	for _, item := range items {
		account := types.Address(item.Address)
		if item.FungibleResources == nil {
			continue
		}

		balances, err := appendFungibles(nil, account, item.FungibleResources.Items)
		if err != nil {
			return nil, err
		}

		// 超出首页的部分顺序翻页
		if cursor := item.FungibleResources.NextCursor; cursor != "" {
			rest, err := followCursor(ctx, func(ctx context.Context, cur string) ([]fungibleItem, string, error) {
				if cur == "" {
					cur = cursor
				}
				req := &entityPageRequest{Address: item.Address, Cursor: cur, AtLedgerState: anchor.Selector()}
				var resp fungiblePage
				if err := c.post(ctx, pathEntityFungibles, req, &resp); err != nil {
					return nil, "", err
				}
				return resp.Items, resp.NextCursor, nil
			})
			if err != nil {
				return nil, err
			}
			balances, err = appendFungibles(balances, account, rest)
			if err != nil {
				return nil, err
			}
		}

		all = append(all, balances...)
	}
	return all, nil
}

func appendFungibles(dst []FungibleBalance, account types.Address, items []fungibleItem) ([]FungibleBalance, error) {
	for _, it := range items {
		amount, err := decimal.NewFromString(it.Amount)
		if err != nil {
			return nil, fmt.Errorf("gateway: invalid amount %q for %s/%s: %w", it.Amount, account, it.ResourceAddress, err)
		}
		if amount.IsZero() {
			continue
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("gateway: negative amount %q for %s/%s", it.Amount, account, it.ResourceAddress)
		}
		dst = append(dst, FungibleBalance{
			Account:            account,
			Resource:           types.Address(it.ResourceAddress),
			Amount:             amount,
			LastUpdatedVersion: it.LastUpdatedAtStateVersion,
		})
	}
	return dst, nil
}

// NonFungibleHoldings 拉取一组账户持有的全部 NFT 本地 id，自动翻页。
func (c *Client) NonFungibleHoldings(ctx context.Context, anchor *Anchor, accounts []types.Address) ([]NonFungibleHolding, error) {
	items, err := c.EntityDetails(ctx, anchor, accounts)
	if err != nil {
		return nil, err
	}

	var all []NonFungibleHolding
	for _, item := range items {
		account := types.Address(item.Address)
		if item.NonFungibleResources == nil {
			continue
		}

		pageItems := item.NonFungibleResources.Items
		if cursor := item.NonFungibleResources.NextCursor; cursor != "" {
			rest, err := followCursor(ctx, func(ctx context.Context, cur string) ([]nonFungItem, string, error) {
				if cur == "" {
					cur = cursor
				}
				req := &entityPageRequest{Address: item.Address, Cursor: cur, AtLedgerState: anchor.Selector()}
				var resp nonFungPage
				if err := c.post(ctx, pathEntityNonFungibles, req, &resp); err != nil {
					return nil, "", err
				}
				return resp.Items, resp.NextCursor, nil
			})
			if err != nil {
				return nil, err
			}
			pageItems = append(pageItems, rest...)
		}

		for _, it := range pageItems {
			if len(it.Ids) == 0 {
				continue
			}
			all = append(all, NonFungibleHolding{
				Account:            account,
				Resource:           types.Address(it.ResourceAddress),
				LocalIds:           it.Ids,
				LastUpdatedVersion: it.LastUpdatedAtStateVersion,
			})
		}
	}
	return all, nil
}

// NonFungibleData 批量拉取某 NFT 资源下一组本地 id 的数据负载（100 个/块）。
// 已销毁的 NFT 原样返回（is_burned=true），由上层决定是否参与头寸计算。
func (c *Client) NonFungibleData(ctx context.Context, anchor *Anchor, resource types.Address, localIds []string) ([]NonFungibleData, error) {
	return fetchChunked(ctx, localIds, consts.NonFungibleDataChunkSize, c.chunkConcurrency,
		func(ctx context.Context, chunk []string) ([]NonFungibleData, error) {
			req := &nonFungibleDataRequest{
				ResourceAddress: string(resource),
				NonFungibleIds:  chunk,
				AtLedgerState:   anchor.Selector(),
			}
			var resp nonFungibleDataResponse
			if err := c.post(ctx, pathNonFungibleData, req, &resp); err != nil {
				return nil, err
			}

			out := make([]NonFungibleData, 0, len(resp.Items))
			for _, it := range resp.Items {
				data := NonFungibleData{
					Resource: resource,
					LocalId:  it.NonFungibleId,
					IsBurned: it.IsBurned,
				}
				if it.Data != nil {
					data.Data = it.Data.ProgrammaticJSON
				}
				out = append(out, data)
			}
			return out, nil
		})
}

// KeyValueStoreEntries 遍历整个 key-value store：先顺序翻页列出全部 key，
// 再按 100 个/块并发取值。store 在该高度尚未部署（404）时返回空结果。
func (c *Client) KeyValueStoreEntries(ctx context.Context, anchor *Anchor, store types.Address) ([]KeyValueEntry, error) {
	keys, err := followCursor(ctx, func(ctx context.Context, cursor string) ([]kvsKeyItem, string, error) {
		req := &kvsKeysRequest{
			KeyValueStoreAddress: string(store),
			Cursor:               cursor,
			AtLedgerState:        anchor.Selector(),
		}
		var resp kvsKeysResponse
		if err := c.post(ctx, pathKvsKeys, req, &resp); err != nil {
			return nil, "", err
		}
		return resp.Items, resp.NextCursor, nil
	})
	if err != nil {
		if IsEntityNotFound(err) {
			return nil, nil // 旧高度尚未部署，按空处理
		}
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	keyHexes := make([]string, 0, len(keys))
	keyByHex := make(map[string]sbor.Value, len(keys))
	for _, k := range keys {
		keyHexes = append(keyHexes, k.Key.RawHex)
		keyByHex[k.Key.RawHex] = k.Key.ProgrammaticJSON
	}

	return fetchChunked(ctx, keyHexes, consts.KeyValueStoreChunkSize, c.chunkConcurrency,
		func(ctx context.Context, chunk []string) ([]KeyValueEntry, error) {
			params := make([]kvsKeyParam, 0, len(chunk))
			for _, hex := range chunk {
				params = append(params, kvsKeyParam{KeyHex: hex})
			}
			req := &kvsDataRequest{
				KeyValueStoreAddress: string(store),
				Keys:                 params,
				AtLedgerState:        anchor.Selector(),
			}
			var resp kvsDataResponse
			if err := c.post(ctx, pathKvsData, req, &resp); err != nil {
				return nil, err
			}

			out := make([]KeyValueEntry, 0, len(resp.Items))
			for _, it := range resp.Items {
				entry := KeyValueEntry{Key: it.Key.ProgrammaticJSON, KeyHex: it.Key.RawHex}
				if entry.Key.Kind == "" {
					// data 接口可能省略 key 的 programmatic_json，回填 keys 阶段的解析结果
					if kv, ok := keyByHex[it.Key.RawHex]; ok {
						entry.Key = kv
					}
				}
				if it.Value != nil {
					entry.Value = it.Value.ProgrammaticJSON
				}
				out = append(out, entry)
			}
			return out, nil
		})
}

// ComponentStates 查询一组组件的状态树。found=false 表示该组件在此高度尚未部署。
func (c *Client) ComponentStates(ctx context.Context, anchor *Anchor, components []types.Address) (map[types.Address]ComponentState, error) {
	out := make(map[types.Address]ComponentState, len(components))
	for _, component := range components {
		state, found, err := c.ComponentState(ctx, anchor, component)
		if err != nil {
			return nil, err
		}
		if found {
			out[component] = state
		}
	}
	return out, nil
}

// ComponentState 查询单个组件在锚定高度的状态树
func (c *Client) ComponentState(ctx context.Context, anchor *Anchor, component types.Address) (ComponentState, bool, error) {
	items, err := c.EntityDetails(ctx, anchor, []types.Address{component})
	if err != nil {
		if IsEntityNotFound(err) {
			return ComponentState{}, false, nil
		}
		return ComponentState{}, false, err
	}
	for _, item := range items {
		if item.Address == string(component) && item.Details != nil && item.Details.State != nil {
			return ComponentState{Address: component, State: *item.Details.State}, true, nil
		}
	}
	return ComponentState{}, false, nil
}

package dispatcher

import (
	"encoding/json"
	"fmt"

	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/logic/snapshot"
	"defi-snapshot-xrd/internal/mq"
	"defi-snapshot-xrd/internal/types"
	"defi-snapshot-xrd/internal/utils"
	pkgutils "defi-snapshot-xrd/pkg/utils"

	"github.com/shopspring/decimal"
)

// QuoteFunc 查询某资源的 USD 报价；无报价时返回 false。
type QuoteFunc func(resource types.Address) (decimal.Decimal, bool)

// snapshotMessage 是发往 Kafka 的快照消息载荷（每账户一条）
type snapshotMessage struct {
	Account      string                       `json:"account"`
	StateVersion uint64                       `json:"state_version"`
	Staked       decimal.Decimal              `json:"staked"`
	Unstaked     decimal.Decimal              `json:"unstaked"`
	XrdPriceUsd  *decimal.Decimal             `json:"xrd_price_usd,omitempty"`
	Fungibles    []balanceEntry               `json:"fungibles"`
	NonFungibles []nonFungibleEntry           `json:"non_fungibles"`
	Positions    map[string][]positionMessage `json:"positions"`
}

type balanceEntry struct {
	Resource string          `json:"resource"`
	Amount   decimal.Decimal `json:"amount"`
}

type nonFungibleEntry struct {
	Resource string   `json:"resource"`
	LocalIds []string `json:"local_ids"`
}

type positionMessage struct {
	Protocol      string         `json:"protocol"`
	Kind          string         `json:"kind"`
	Component     string         `json:"component,omitempty"`
	Validator     string         `json:"validator,omitempty"`
	NftLocalId    string         `json:"nft_local_id,omitempty"`
	Entries       []balanceEntry `json:"entries"`
	Loans         []balanceEntry `json:"loans,omitempty"`
	OutsideWindow []balanceEntry `json:"outside_window,omitempty"`
}

// BuildSnapshotKafkaJobs 将一批账户快照编码为 KafkaJob。
// 每个账户一条消息，key 为账户地址，按地址哈希选分区，
// 保证同一账户的历次快照在分区内有序。
// quote 可为 nil；非 nil 时给每条消息附带 XRD 的 USD 报价。
func BuildSnapshotKafkaJobs(
	topic string,
	partitions int32,
	xrdResource types.Address,
	snaps []snapshot.AccountBalanceSnapshot,
	quote QuoteFunc,
) ([]*mq.KafkaJob, error) {
	if partitions <= 0 {
		partitions = 1
	}

	var xrdPrice *decimal.Decimal
	if quote != nil {
		if p, ok := quote(xrdResource); ok {
			xrdPrice = &p
		}
	}

	// 编码是纯 CPU 工作，按核数并发，结果保持输入序
	type buildResult struct {
		job *mq.KafkaJob
		err error
	}
	indexes := make([]int, len(snaps))
	for i := range indexes {
		indexes[i] = i
	}
	results := pkgutils.ParallelMap(indexes, consts.CpuCount, func(i int) buildResult {
		snap := &snaps[i]
		value, err := json.Marshal(buildMessage(snap, xrdPrice))
		if err != nil {
			return buildResult{err: fmt.Errorf("marshal snapshot for %s failed: %w", snap.Account, err)}
		}
		return buildResult{job: &mq.KafkaJob{
			Topic:     topic,
			Partition: utils.PartitionForAddress(snap.Account, partitions),
			Key:       []byte(snap.Account),
			Value:     value,
		}}
	})

	jobs := make([]*mq.KafkaJob, 0, len(snaps))
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		jobs = append(jobs, res.job)
	}
	return jobs, nil
}

func buildMessage(snap *snapshot.AccountBalanceSnapshot, xrdPrice *decimal.Decimal) *snapshotMessage {
	msg := &snapshotMessage{
		Account:      string(snap.Account),
		StateVersion: snap.StateVersion,
		Staked:       snap.Staked,
		Unstaked:     snap.Unstaked,
		XrdPriceUsd:  xrdPrice,
		Fungibles:    make([]balanceEntry, 0, len(snap.Fungibles)),
		NonFungibles: make([]nonFungibleEntry, 0, len(snap.NonFungibles)),
		Positions:    make(map[string][]positionMessage, len(snap.Positions)),
	}

	for _, f := range snap.Fungibles {
		msg.Fungibles = append(msg.Fungibles, balanceEntry{
			Resource: string(f.Resource),
			Amount:   f.Amount,
		})
	}
	for _, nf := range snap.NonFungibles {
		msg.NonFungibles = append(msg.NonFungibles, nonFungibleEntry{
			Resource: string(nf.Resource),
			LocalIds: nf.LocalIds,
		})
	}
	for protocol, positions := range snap.Positions {
		list := make([]positionMessage, 0, len(positions))
		for i := range positions {
			list = append(list, buildPositionMessage(&positions[i]))
		}
		msg.Positions[protocol] = list
	}
	return msg
}

func buildPositionMessage(p *common.ProtocolPosition) positionMessage {
	return positionMessage{
		Protocol:      p.Protocol,
		Kind:          string(p.Kind),
		Component:     string(p.Component),
		Validator:     string(p.Validator),
		NftLocalId:    p.NftLocalId,
		Entries:       buildEntries(p.Entries),
		Loans:         buildEntries(p.Loans),
		OutsideWindow: buildEntries(p.OutsideWindow),
	}
}

func buildEntries(entries []common.PositionEntry) []balanceEntry {
	if len(entries) == 0 {
		return []balanceEntry{}
	}
	out := make([]balanceEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, balanceEntry{
			Resource: string(e.Resource),
			Amount:   e.Amount,
		})
	}
	return out
}

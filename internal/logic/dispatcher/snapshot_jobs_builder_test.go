package dispatcher

import (
	"encoding/json"
	"testing"

	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/logic/snapshot"
	"defi-snapshot-xrd/internal/types"
	"defi-snapshot-xrd/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func sampleSnapshot(account string) snapshot.AccountBalanceSnapshot {
	return snapshot.AccountBalanceSnapshot{
		Account:      types.Address(account),
		StateVersion: 12345,
		Staked:       dec("300"),
		Unstaked:     dec("25"),
		Fungibles: []snapshot.FungibleHolding{
			{Resource: consts.XrdResource, Amount: dec("100.5")},
		},
		NonFungibles: []snapshot.NonFungibleHolding{
			{Resource: types.Address("resource_rdx1nqcdpnft"), LocalIds: []string{"#1#"}},
		},
		Positions: map[string][]common.ProtocolPosition{
			"root_finance": {
				{
					Protocol:   "root_finance",
					Kind:       common.KindLending,
					Component:  types.Address("component_rdx1cqmarket"),
					NftLocalId: "#1#",
					Entries: []common.PositionEntry{
						{Resource: consts.XrdResource, Amount: dec("105")},
					},
					Loans: []common.PositionEntry{
						{Resource: types.Address("resource_rdx1usdc00"), Amount: dec("50")},
					},
				},
			},
			"ociswap": {},
		},
	}
}

func TestBuildSnapshotKafkaJobs(t *testing.T) {
	snaps := []snapshot.AccountBalanceSnapshot{
		sampleSnapshot("account_rdx1qqalpha"),
		sampleSnapshot("account_rdx1qqgamma"),
	}

	jobs, err := BuildSnapshotKafkaJobs("defi_snapshot", 8, consts.XrdResource, snaps, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	for i, job := range jobs {
		assert.Equal(t, "defi_snapshot", job.Topic)
		assert.Equal(t, utils.PartitionForAddress(snaps[i].Account, 8), job.Partition)
		assert.Equal(t, string(snaps[i].Account), string(job.Key))
	}

	var msg snapshotMessage
	require.NoError(t, json.Unmarshal(jobs[0].Value, &msg))
	assert.Equal(t, "account_rdx1qqalpha", msg.Account)
	assert.Equal(t, uint64(12345), msg.StateVersion)
	assert.True(t, msg.Staked.Equal(dec("300")))
	assert.True(t, msg.Unstaked.Equal(dec("25")))
	assert.Nil(t, msg.XrdPriceUsd)

	require.Len(t, msg.Fungibles, 1)
	assert.True(t, msg.Fungibles[0].Amount.Equal(dec("100.5")))

	// 空头寸协议也要显式出现在消息里
	require.Contains(t, msg.Positions, "ociswap")
	assert.Empty(t, msg.Positions["ociswap"])

	require.Len(t, msg.Positions["root_finance"], 1)
	pos := msg.Positions["root_finance"][0]
	assert.Equal(t, string(common.KindLending), pos.Kind)
	require.Len(t, pos.Loans, 1)
	assert.True(t, pos.Loans[0].Amount.Equal(dec("50")))
}

func TestBuildSnapshotKafkaJobsWithQuote(t *testing.T) {
	snaps := []snapshot.AccountBalanceSnapshot{sampleSnapshot("account_rdx1qqalpha")}

	quote := func(resource types.Address) (decimal.Decimal, bool) {
		if resource == consts.XrdResource {
			return dec("0.025"), true
		}
		return decimal.Zero, false
	}

	jobs, err := BuildSnapshotKafkaJobs("defi_snapshot", 4, consts.XrdResource, snaps, quote)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	var msg snapshotMessage
	require.NoError(t, json.Unmarshal(jobs[0].Value, &msg))
	require.NotNil(t, msg.XrdPriceUsd)
	assert.True(t, msg.XrdPriceUsd.Equal(dec("0.025")))
}

func TestBuildSnapshotKafkaJobsPartitionFloor(t *testing.T) {
	snaps := []snapshot.AccountBalanceSnapshot{sampleSnapshot("account_rdx1qqalpha")}

	jobs, err := BuildSnapshotKafkaJobs("defi_snapshot", 0, consts.XrdResource, snaps, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int32(0), jobs[0].Partition)
}

package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Entity kinds known to the store
type EntityKind string

const (
	EntityFactory         EntityKind = "factory"
	EntityBundle          EntityKind = "bundle"
	EntityPool            EntityKind = "pool"
	EntityToken           EntityKind = "token"
	EntityTick            EntityKind = "tick"
	EntityTransaction     EntityKind = "tx"
	EntityMint            EntityKind = "mint"
	EntityBurn            EntityKind = "burn"
	EntityCollect         EntityKind = "collect"
	EntitySwap            EntityKind = "swap"
	EntityUniswapDayData  EntityKind = "uniswap_day"
	EntityUniswapHourData EntityKind = "uniswap_hour"
	EntityPoolDayData     EntityKind = "pool_day"
	EntityPoolHourData    EntityKind = "pool_hour"
	EntityTokenDayData    EntityKind = "token_day"
	EntityTokenHourData   EntityKind = "token_hour"
	EntityWatermark       EntityKind = "watermark"
)

// RecordID = "<tx_hash>-<log_index>"
func MakeRecordID(txHash string, logIndex uint32) string {
	return strings.ToLower(txHash) + "-" + strconv.FormatUint(uint64(logIndex), 10)
}

type ParsedRecordID struct {
	TxHash   string
	LogIndex uint32
}

// String canonical form, as MakeRecordID builds it
func (r ParsedRecordID) String() string {
	return MakeRecordID(r.TxHash, r.LogIndex)
}

// ParseRecordID splits "<tx_hash>-<log_index>"; the hash must be 32 bytes of 0x-prefixed hex
func ParseRecordID(id string) (ParsedRecordID, error) {
	var out ParsedRecordID
	i := strings.LastIndex(id, "-")
	if i <= 0 || i == len(id)-1 {
		return out, fmt.Errorf("invalid record id format: %s", id)
	}

	raw, err := hexutil.Decode(id[:i])
	if err != nil || len(raw) != common.HashLength {
		return out, fmt.Errorf("invalid record id tx hash: %s", id[:i])
	}

	logIdx, err := strconv.ParseUint(id[i+1:], 10, 32)
	if err != nil {
		return out, fmt.Errorf("invalid log_index, err=%v", err)
	}

	out.TxHash = strings.ToLower(id[:i])
	out.LogIndex = uint32(logIdx)
	return out, nil
}

// TickID = "<pool>#<tick_idx>"
func TickID(pool string, tickIdx int64) string {
	return pool + "#" + strconv.FormatInt(tickIdx, 10)
}

// BucketID = "<subject>-<bucket_index>"
func BucketID(subject string, index int64) string {
	return subject + "-" + strconv.FormatInt(index, 10)
}

// BundleID one bundle per chain
func BundleID(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

// NormalizeAddress lower-cases a hex address; ok=false for anything that isn't a 20-byte hex address
func NormalizeAddress(s string) (string, bool) {
	if !common.IsHexAddress(s) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), true
}

// NullEthHex returned by some non-standard ERC-20 implementations instead of a value
const NullEthHex = "0x0000000000000000000000000000000000000000000000000000000000000001"

func IsNullEthValue(value string) bool {
	return value == NullEthHex
}

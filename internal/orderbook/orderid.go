package orderbook

import (
	"fmt"
	"strconv"
)

// idBits is the width of the canonical order id: 64 bits of block number,
// 32 bits of tx_index+1, 32 bits of op_index+1.
const idBits = 128

// EncodeOrderID renders the canonical order id for (blockNum, txIndex,
// opIndex) as a 128-character base-2 string, so that lexicographic string
// order matches numeric order. blockNum must be > 0.
func EncodeOrderID(blockNum uint64, txIndex, opIndex uint32) string {
	if blockNum == 0 {
		panic("orderbook: EncodeOrderID requires block_num > 0")
	}
	hi := strconv.FormatUint(blockNum, 2)
	mid := strconv.FormatUint(uint64(txIndex)+1, 2)
	lo := strconv.FormatUint(uint64(opIndex)+1, 2)
	return pad(hi, 64) + pad(mid, 32) + pad(lo, 32)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s[len(s)-width:]
	}
	zeros := make([]byte, width-len(s))
	for i := range zeros {
		zeros[i] = '0'
	}
	return string(zeros) + s
}

// DecodeOrderID parses the inverse of EncodeOrderID, returning blockNum,
// txIndex, and opIndex with the +1 bias removed. blockNum must decode to
// a value > 0.
func DecodeOrderID(id string) (blockNum uint64, txIndex, opIndex uint32, err error) {
	if len(id) != idBits {
		return 0, 0, 0, fmt.Errorf("orderbook: order id %q has length %d, want %d", id, len(id), idBits)
	}
	hi, err := strconv.ParseUint(id[0:64], 2, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("orderbook: bad block_num field in %q: %w", id, err)
	}
	if hi == 0 {
		return 0, 0, 0, fmt.Errorf("orderbook: order id %q has block_num == 0", id)
	}
	mid, err := strconv.ParseUint(id[64:96], 2, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("orderbook: bad tx_index field in %q: %w", id, err)
	}
	lo, err := strconv.ParseUint(id[96:128], 2, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("orderbook: bad op_index field in %q: %w", id, err)
	}
	return hi, uint32(mid) - 1, uint32(lo) - 1, nil
}

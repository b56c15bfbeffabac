package sqlbook

import "github.com/ethereum/go-ethereum/common"

func hexToAddress(s string) common.Address {
	return common.HexToAddress(s)
}

package ledgerstate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const prefixAccount = "acc:"

func accountKey(addr common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s", prefixAccount, addr.Hex()))
}

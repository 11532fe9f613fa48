package monitor

import (
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/message"
)

// decodeChainCells decodes one column's binary cells into label chains. A
// nil cell carries no obligation and decodes to the bottom chain.
func decodeChainCells(cells [][]byte) ([]*label.Chain, error) {
	chains := make([]*label.Chain, len(cells))
	for r, cell := range cells {
		if len(cell) == 0 {
			chains[r] = label.Bottom()
			continue
		}
		ch, err := message.DecodePolicyChain(cell)
		if err != nil {
			return nil, err
		}
		chains[r] = ch
	}
	return chains, nil
}

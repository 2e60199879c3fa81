package domain

import "sort"

// Balances maps an asset symbol (including the reference/fiat asset) to the
// quantity held. An asset absent from the map is treated as zero. The ledger
// is the single mutable owner; everyone else receives copies.
type Balances map[string]float64

// Get returns the held quantity for asset, or zero when the asset is absent.
func (b Balances) Get(asset string) float64 {
	return b[asset]
}

// Clone returns an independent copy of the balances.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Assets returns the asset symbols in lexical order.
func (b Balances) Assets() []string {
	names := make([]string, 0, len(b))
	for a := range b {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DepthKey identifies one aggregation bucket. Bids and asks never share a
// bucket even at the same numeric price.
type DepthKey struct {
	Price string
	Side  Side
}

type DepthLevel struct {
	Price    decimal.Decimal
	Side     Side
	Quantity decimal.Decimal
	Orders   int
}

type Depth map[DepthKey]DepthLevel

func (d Depth) add(side Side, order *Order) {
	key := DepthKey{Price: priceKey(order.Price), Side: side}
	lvl, ok := d[key]
	if !ok {
		lvl = DepthLevel{Price: order.Price, Side: side, Quantity: decimal.Zero}
	}
	lvl.Quantity = lvl.Quantity.Add(order.Qty)
	lvl.Orders++
	d[key] = lvl
}

func (d Depth) Level(side Side, price decimal.Decimal) (DepthLevel, bool) {
	lvl, ok := d[DepthKey{Price: priceKey(price), Side: side}]
	return lvl, ok
}

// Bids returns bid levels, highest price first.
func (d Depth) Bids() []DepthLevel {
	return d.levels(Bid)
}

// Asks returns ask levels, lowest price first.
func (d Depth) Asks() []DepthLevel {
	return d.levels(Ask)
}

func (d Depth) levels(side Side) []DepthLevel {
	out := make([]DepthLevel, 0, len(d))
	for k, lvl := range d {
		if k.Side == side {
			out = append(out, lvl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return betterPrice(side, out[i].Price, out[j].Price)
	})
	return out
}

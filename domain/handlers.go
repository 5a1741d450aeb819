package domain

import "github.com/apoloval/flightvars/types"

// removeByClientName drops every subscription belonging to name, used by
// both handlers' Close handling. It reuses subs' backing array since it
// only ever writes at or behind the read index.
func removeByClientName(subs []*types.Subscription, name string) []*types.Subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.Client.Name != name {
			out = append(out, s)
		}
	}
	return out
}

// valueToFloat64 widens any Value to a float64, the type the simulator FFI
// speaks for LVars. Bool maps to 1/0 like every other narrowing in the
// data model.
func valueToFloat64(v types.Value) float64 {
	switch x := v.(type) {
	case types.Bool:
		if x {
			return 1
		}
		return 0
	case types.Int:
		return float64(x)
	case types.UnsignedInt:
		return float64(x)
	case types.Float:
		return float64(x)
	default:
		return float64(v.AsInt64())
	}
}

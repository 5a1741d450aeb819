package oacsp

import (
	"fmt"
	"strconv"

	"github.com/apoloval/flightvars/types"
)

// EncodeEvent serializes ev as a single '\n'-terminated OACSP line. It
// returns (nil, false) for types.CloseEvent{} — the poison pill the
// writer goroutine recognizes and never puts on the wire.
func EncodeEvent(ev types.Event) ([]byte, bool, error) {
	update, ok := ev.(types.Update)
	if !ok {
		return nil, false, nil
	}
	switch v := update.Target.(type) {
	case types.FsuipcOffset:
		line := fmt.Sprintf("EVENT_OFFSET %X %s\n", v.Addr, formatValue(update.Value))
		return []byte(line), true, nil
	case types.LVar:
		line := fmt.Sprintf("EVENT_LVAR %s %s\n", string(v), formatValue(update.Value))
		return []byte(line), true, nil
	default:
		return nil, false, fmt.Errorf("oacsp: cannot encode update for %T", update.Target)
	}
}

func formatValue(v types.Value) string {
	switch x := v.(type) {
	case types.Bool:
		if x {
			return "1"
		}
		return "0"
	case types.Int:
		return strconv.FormatInt(int64(x), 10)
	case types.UnsignedInt:
		return strconv.FormatUint(uint64(x), 10)
	case types.Float:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

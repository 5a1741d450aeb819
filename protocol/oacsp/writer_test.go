package oacsp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apoloval/flightvars/types"
)

func TestEncodeEventOffset(t *testing.T) {
	ev := types.Update{
		Target: types.FsuipcOffset{Addr: 0x0330, Length: types.UW},
		Value:  types.UnsignedInt(42),
	}
	line, ok, err := EncodeEvent(ev)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EVENT_OFFSET 330 42\n", string(line))
}

func TestEncodeEventLVar(t *testing.T) {
	ev := types.Update{Target: types.LVar("foobar"), Value: types.Int(-7)}
	line, ok, err := EncodeEvent(ev)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EVENT_LVAR foobar -7\n", string(line))
}

func TestEncodeCloseEventIsNotEncoded(t *testing.T) {
	line, ok, err := EncodeEvent(types.CloseEvent{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, line)
}

// TestOffsetRoundTripsThroughParseAndEncode exercises the round-trip
// property: a WRITE_OFFSET line parsed into a Command and mirrored back as
// an Update through EncodeEvent yields an EVENT_OFFSET line carrying the
// same address and value. The verb differs, as the two directions of the
// protocol use distinct verbs, and the length tag is not part of an
// EVENT_OFFSET line.
func TestOffsetRoundTripsThroughParseAndEncode(t *testing.T) {
	r := NewReader(bytes.NewBufferString("BEGIN 1 c\nWRITE_OFFSET 1234:SW -123\n"), &fakeSink{})
	_, err := r.ReadCommand()
	require.NoError(t, err)
	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	write := cmd.(types.Write)

	line, ok, err := EncodeEvent(types.Update{Target: write.Target, Value: write.Value})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EVENT_OFFSET 1234 -123\n", string(line))
}

func TestLVarRoundTripsThroughParseAndEncode(t *testing.T) {
	r := NewReader(bytes.NewBufferString("BEGIN 1 c\nWRITE_LVAR throttle 1\n"), &fakeSink{})
	_, err := r.ReadCommand()
	require.NoError(t, err)
	cmd, err := r.ReadCommand()
	require.NoError(t, err)
	write := cmd.(types.Write)

	line, ok, err := EncodeEvent(types.Update{Target: write.Target, Value: write.Value})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EVENT_LVAR throttle 1\n", string(line))
}

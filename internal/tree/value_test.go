package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	v, err := Decode([]byte(`{"b":[1,2],"a":"x","c":null,"d":true}`))
	require.NoError(t, err)

	out, err := Encode(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":[1,2],"c":null,"d":true}`, string(out), "keys must encode in lexical order")
}

func TestDecodeRejectsFractions(t *testing.T) {
	_, err := Decode([]byte(`{"duration":2.5}`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"duration":1e3}`))
	require.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Object{"scenes": Array{Object{"summary": String("dawn")}}}
	cp := Clone(orig).(Object)

	cp["scenes"].(Array)[0].(Object)["summary"] = String("dusk")
	assert.Equal(t, String("dawn"), orig["scenes"].(Array)[0].(Object)["summary"])
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "null", KindOf(Null{}))
	assert.Equal(t, "string", KindOf(String("x")))
	assert.Equal(t, "int", KindOf(Int(1)))
	assert.Equal(t, "bool", KindOf(Bool(true)))
	assert.Equal(t, "array", KindOf(Array{}))
	assert.Equal(t, "object", KindOf(Object{}))
}

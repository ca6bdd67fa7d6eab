package typekey_test

import (
	"testing"

	"github.com/plus3/slabstore/typekey"
	"github.com/stretchr/testify/assert"
)

type widget struct{ N int }
type gadget struct{ N int }

func TestRegisterComponentIdempotent(t *testing.T) {
	r := typekey.NewRegistry()

	k1 := typekey.RegisterComponent[widget](r)
	k2 := typekey.RegisterComponent[widget](r)

	assert.Equal(t, k1, k2)
	assert.True(t, k1.Valid())
}

func TestRegisterComponentDistinctTypes(t *testing.T) {
	r := typekey.NewRegistry()

	k1 := typekey.RegisterComponent[widget](r)
	k2 := typekey.RegisterComponent[gadget](r)

	assert.NotEqual(t, k1, k2)
	assert.Equal(t, 2, r.Count())
}

func TestBitIndexIsDenseAndZeroBased(t *testing.T) {
	r := typekey.NewRegistry()

	k1 := typekey.RegisterComponent[widget](r)
	k2 := typekey.RegisterComponent[gadget](r)

	assert.Equal(t, uint32(0), k1.BitIndex())
	assert.Equal(t, uint32(1), k2.BitIndex())
}

func TestNameReturnsGoTypeName(t *testing.T) {
	r := typekey.NewRegistry()
	k := typekey.RegisterComponent[widget](r)

	assert.Contains(t, r.Name(k), "widget")
}

func TestNameUnknownKeyIsEmpty(t *testing.T) {
	r := typekey.NewRegistry()
	assert.Equal(t, "", r.Name(typekey.TypeKey{}))
}

func TestZeroValueIsInvalid(t *testing.T) {
	var k typekey.TypeKey
	assert.False(t, k.Valid())
}

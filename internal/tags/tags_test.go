package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uet-master/hepha/internal/value"
)

func TestAddThenRemovePropagationRoundTrips(t *testing.T) {
	set := AddPropagation(0, Add)
	assert.True(t, Allows(set, Add))
	set = RemovePropagation(set, Add)
	assert.False(t, Allows(set, Add))
}

func TestAllPropagationAllowsEveryKind(t *testing.T) {
	for k := Kind(0); k < numKinds; k++ {
		assert.True(t, Allows(AllPropagation, k))
	}
}

func TestRemoveFromAllLeavesOthersIntact(t *testing.T) {
	set := RemovePropagation(AllPropagation, SuperComponent)
	assert.False(t, Allows(set, SuperComponent))
	assert.True(t, Allows(set, Add))
}

func TestPropagateBinaryRespectsMask(t *testing.T) {
	sticky := value.Tag{TypeID: "Sticky", Mask: AllPropagation}
	washable := value.Tag{TypeID: "Washable", Mask: RemovePropagation(AllPropagation, Add)}

	a := value.ConstInt(1, 64, false).AddTag(sticky).AddTag(washable)
	b := value.ConstInt(2, 64, false)
	result := value.Add(a, b)

	tagged := PropagateBinary("+", a, b, result)
	assert.True(t, tagged.HasTag(sticky))
	assert.False(t, tagged.HasTag(washable))
}

func TestPropagateToComponentRequiresSubComponent(t *testing.T) {
	allowed := value.Tag{TypeID: "Spreads", Mask: AllPropagation}
	blocked := value.Tag{TypeID: "Contained", Mask: RemovePropagation(AllPropagation, SubComponent)}

	structured := value.ConstInt(0, 64, false).AddTag(allowed).AddTag(blocked)
	component := value.ConstInt(1, 8, false)

	got := PropagateToComponent(structured, component)
	assert.True(t, got.HasTag(allowed))
	assert.False(t, got.HasTag(blocked))
}

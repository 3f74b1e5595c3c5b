package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toastbuild/toast/internal/engine/fingerprint"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := fingerprint.New().AbsorbString("alpine").AbsorbUint64(3).Sum()
	b := fingerprint.New().AbsorbString("alpine").AbsorbUint64(3).Sum()
	assert.Equal(t, a, b)
}

func TestFingerprint_LengthPrefixPreventsConcatenationCollision(t *testing.T) {
	ab := fingerprint.New().AbsorbString("ab").AbsorbString("c").Sum()
	a_bc := fingerprint.New().AbsorbString("a").AbsorbString("bc").Sum()
	assert.NotEqual(t, ab, a_bc)
}

func TestFingerprint_MappingOrderIndependent(t *testing.T) {
	m1 := map[string]string{"A": "1", "B": "2"}
	m2 := map[string]string{"B": "2", "A": "1"}
	assert.Equal(t, fingerprint.New().AbsorbMapping(m1).Sum(), fingerprint.New().AbsorbMapping(m2).Sum())
}

func TestFingerprint_MappingDiffersFromDifferentValues(t *testing.T) {
	m1 := map[string]string{"A": "1"}
	m2 := map[string]string{"A": "2"}
	assert.NotEqual(t, fingerprint.New().AbsorbMapping(m1).Sum(), fingerprint.New().AbsorbMapping(m2).Sum())
}

func TestFingerprint_SequenceOrderMatters(t *testing.T) {
	a := fingerprint.New().AbsorbSequence([]string{"x", "y"}).Sum()
	b := fingerprint.New().AbsorbSequence([]string{"y", "x"}).Sum()
	assert.NotEqual(t, a, b)
}

func TestFingerprint_BoolAffectsDigest(t *testing.T) {
	a := fingerprint.New().AbsorbBool(true).Sum()
	b := fingerprint.New().AbsorbBool(false).Sum()
	assert.NotEqual(t, a, b)
}

func TestFingerprint_SumDoesNotConsume(t *testing.T) {
	f := fingerprint.New().AbsorbString("x")
	first := f.Sum()
	second := f.Sum()
	assert.Equal(t, first, second)
}

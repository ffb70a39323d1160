package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTwoVariantTest() *ABTest {
	return &ABTest{
		ID:            "test-1",
		DecisionType:  KindResultRelevance,
		Status:        TestStatusRunning,
		SplitStrategy: SplitDeterministic,
		Variants: []TestVariant{
			{ID: "control", TrafficPercentage: 50, IsControl: true},
			{ID: "variant-a", TrafficPercentage: 50},
		},
	}
}

func TestABTest_Validate(t *testing.T) {
	reg := NewTestRegistry()
	require.NoError(t, reg.Register(newTwoVariantTest()))

	bad := newTwoVariantTest()
	bad.Variants[0].TrafficPercentage = 40
	assert.Error(t, reg.Register(bad))
}

func TestABTest_DeterministicAssignmentIsStable(t *testing.T) {
	test := newTwoVariantTest()

	first := test.VariantForUser("user-42")
	second := test.VariantForUser("user-42")
	assert.Equal(t, first.ID, second.ID)
}

func TestABTest_DeterministicAssignmentVariesByUser(t *testing.T) {
	test := newTwoVariantTest()

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		v := test.VariantForUser(randomUserID(i))
		seen[v.ID] = true
	}
	assert.Contains(t, seen, "control")
	assert.Contains(t, seen, "variant-a")
}

func randomUserID(i int) string {
	return "user-" + string(rune('a'+i%26)) + string(rune('0'+i%10))
}

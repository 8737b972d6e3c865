package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

func mustBase(t *testing.T, instances []Instance, weights []float64) *Base {
	b, err := NewBase("test", IB1, GR, instances, weights)
	require.NoError(t, err)
	return b
}

func inst(class string, features ...string) Instance {
	return Instance{Class: class, Features: features}
}

// --- Tests ------------------------------------------------------------------

func TestNewBase_RejectsEmptyInstances(t *testing.T) {
	_, err := NewBase("test", IB1, GR, nil, nil)
	assert.ErrorIs(t, err, ErrNoInstances)
}

func TestNewBase_RejectsFeatureMismatch(t *testing.T) {
	_, err := NewBase("test", IB1, GR, []Instance{
		inst("yes", "a", "b"),
		inst("no", "a"),
	}, nil)
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestNewBase_RejectsWeightCountMismatch(t *testing.T) {
	_, err := NewBase("test", IB1, GR, []Instance{
		inst("yes", "a", "b"),
	}, []float64{1.0})
	assert.ErrorIs(t, err, ErrIllegalWeights)
}

func TestNewBase_DefaultsToUniformWeights(t *testing.T) {
	b := mustBase(t, []Instance{inst("yes", "a", "b", "c")}, nil)
	assert.Equal(t, []float64{1.0, 1.0, 1.0}, b.weights)
}

func TestNewBase_CopiesInputSlices(t *testing.T) {
	instances := []Instance{inst("yes", "a", "b")}
	weights := []float64{1.0, 2.0}
	b := mustBase(t, instances, weights)

	instances[0].Class = "mutated"
	weights[0] = 99.0

	assert.Equal(t, "yes", b.instances[0].Class, "Base must not share backing array with caller")
	assert.Equal(t, 1.0, b.weights[0], "Base must not share backing array with caller")
}

func TestOverlapDistance_CountsMismatches(t *testing.T) {
	weights := []float64{1.0, 1.0, 1.0}

	assert.Equal(t, 0.0, overlapDistance([]string{"a", "b", "c"}, []string{"a", "b", "c"}, weights))
	assert.Equal(t, 1.0, overlapDistance([]string{"x", "b", "c"}, []string{"a", "b", "c"}, weights))
	assert.Equal(t, 3.0, overlapDistance([]string{"x", "y", "z"}, []string{"a", "b", "c"}, weights))
}

func TestOverlapDistance_WeightsNonUniform(t *testing.T) {
	weights := []float64{1.0, 5.0}
	d := overlapDistance([]string{"x", "y"}, []string{"a", "b"}, weights)
	assert.Equal(t, 6.0, d)
}

func TestOverlapDistance_PadsShortQuery(t *testing.T) {
	weights := []float64{1.0, 1.0, 1.0}
	// query shorter than instance: missing positions never match.
	d := overlapDistance([]string{"a"}, []string{"a", "b", "c"}, weights)
	assert.Equal(t, 2.0, d)
}

func TestBase_NearestNeighbors_OrdersByDistanceAscending(t *testing.T) {
	b := mustBase(t, []Instance{
		inst("far", "x", "y"),
		inst("near", "a", "y"),
		inst("exact", "a", "b"),
	}, nil)

	results := b.nearestNeighbors([]string{"a", "b"}, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].instance.Class)
	assert.Equal(t, "near", results[1].instance.Class)
	assert.Equal(t, "far", results[2].instance.Class)
}

func TestBase_NearestNeighbors_RespectsK(t *testing.T) {
	b := mustBase(t, []Instance{
		inst("a", "a", "b"),
		inst("b", "a", "c"),
		inst("c", "d", "e"),
	}, nil)

	results := b.nearestNeighbors([]string{"a", "b"}, 2)
	assert.Len(t, results, 2)
}

func TestBase_NearestNeighbors_ZeroKClampsToOne(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "a", "b")}, nil)
	results := b.nearestNeighbors([]string{"a", "b"}, 0)
	assert.Len(t, results, 1)
}

func TestBase_ApplyProbabilities_RejectsOutOfRangeFeature(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "a", "b")}, nil)
	err := b.ApplyProbabilities(map[int]map[string]float64{5: {"a": 0.9}})
	assert.Error(t, err)
}

func TestBase_ApplyMatrices_RejectsOutOfRangeFeature(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "a", "b")}, nil)
	err := b.ApplyMatrices(map[int]map[[2]string]float64{5: {pairKey("a", "b"): 0.5}})
	assert.Error(t, err)
}

func TestBase_DistanceTo_MatchesOverlapDistanceWithNoOverrides(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "a", "b")}, nil)
	d := b.distanceTo([]string{"x", "b"}, []string{"a", "b"})
	assert.Equal(t, overlapDistance([]string{"x", "b"}, []string{"a", "b"}, b.weights), d)
}

func TestBase_DistanceTo_MatrixEntryReplacesFlatMismatchCost(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "red", "b")}, nil)
	require.NoError(t, b.ApplyMatrices(map[int]map[[2]string]float64{
		0: {pairKey("red", "blue"): 0.25},
	}))
	d := b.distanceTo([]string{"blue", "b"}, []string{"red", "b"})
	assert.Equal(t, 0.25, d)
}

func TestBase_DistanceTo_ProbabilityScalesFlatWeightWhenNoMatrixEntry(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "red", "b")}, nil)
	require.NoError(t, b.ApplyProbabilities(map[int]map[string]float64{
		0: {"red": 0.75},
	}))
	d := b.distanceTo([]string{"blue", "b"}, []string{"red", "b"})
	assert.Equal(t, 0.25, d)
}

func TestBase_DistanceTo_MatrixTakesPrecedenceOverProbability(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "red", "b")}, nil)
	require.NoError(t, b.ApplyProbabilities(map[int]map[string]float64{0: {"red": 0.75}}))
	require.NoError(t, b.ApplyMatrices(map[int]map[[2]string]float64{0: {pairKey("red", "blue"): 0.9}}))
	d := b.distanceTo([]string{"blue", "b"}, []string{"red", "b"})
	assert.Equal(t, 0.9, d)
}

func TestBase_Clone_ReturnsIndependentExperiment(t *testing.T) {
	b := mustBase(t, []Instance{inst("a", "a", "b")}, nil)
	exp1 := b.Clone("exp-1")
	exp2 := b.Clone("exp-2")

	require.NoError(t, exp1.SetOptions("+db"))
	assert.True(t, exp1.Verbosity(DISTRIB))
	assert.False(t, exp2.Verbosity(DISTRIB), "cloning must not share option state between experiments")
}

package classifier

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowSettingsText_IncludesCurrentOptions(t *testing.T) {
	e := newTestExperiment(t)
	var buf bytes.Buffer
	e.ShowSettingsText(&buf)
	out := buf.String()
	assert.Contains(t, out, "ALGORITHM  : IB1")
	assert.Contains(t, out, "NEIGHBORS  : 1")
}

func TestVerbosityLabel_NoneWhenUnset(t *testing.T) {
	assert.Equal(t, "(none)", verbosityLabel(0))
}

func TestVerbosityLabel_JoinsSetFlags(t *testing.T) {
	assert.Equal(t, "DISTRIB DISTANCE", verbosityLabel(DISTRIB|DISTANCE))
}

func TestShowBestNeighborsText_OneLinePerNeighbor(t *testing.T) {
	e := newTestExperiment(t)
	require.NoError(t, e.SetOptions("+k:2"))
	_, _, _, err := e.Classify("a,b")
	require.NoError(t, err)

	var buf bytes.Buffer
	e.ShowBestNeighborsText(&buf)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestSettingsToXML_ReflectsOptions(t *testing.T) {
	e := newTestExperiment(t)
	require.NoError(t, e.SetOptions("+k:3"))
	x := e.SettingsToXML()
	assert.Equal(t, "IB1", x.Algorithm)
	assert.Equal(t, 3, x.Neighbors)
}

func TestWeightsToXML_OneEntryPerFeature(t *testing.T) {
	e := newTestExperiment(t)
	w := e.WeightsToXML()
	assert.Len(t, w.Weight, 2)
}

func TestNeighborsToXML_EmptyBeforeClassify(t *testing.T) {
	e := newTestExperiment(t)
	n := e.NeighborsToXML()
	assert.Empty(t, n.Neighbor)
}

func TestClassifyToJSON_ErrorShapeOnFailure(t *testing.T) {
	e := newTestExperiment(t)
	out, err := e.ClassifyToJSON("")
	require.NoError(t, err)

	var result ClassifyResultJSON
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, `timbl:classify() failed`, result.Error)
	assert.Empty(t, result.Category)
}

func TestClassifyToJSON_PopulatesDistribWhenVerbose(t *testing.T) {
	e := newTestExperiment(t)
	require.NoError(t, e.SetOptions("+db +k:3"))

	out, err := e.ClassifyToJSON("a,b")
	require.NoError(t, err)

	var result ClassifyResultJSON
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, "yes", result.Category)
	assert.NotEmpty(t, result.Distrib)
	assert.Greater(t, result.Distrib["yes"], 0.0)
}

func TestClassifyToJSON_OmitsDecorationsWhenNotVerbose(t *testing.T) {
	e := newTestExperiment(t)
	require.NoError(t, e.SetOptions("-db"))

	out, err := e.ClassifyToJSON("a,b")
	require.NoError(t, err)

	var result ClassifyResultJSON
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Nil(t, result.Distrib)
	assert.Nil(t, result.Distance)
}

func TestClassifyBatchToJSON_PreservesOrder(t *testing.T) {
	e := newTestExperiment(t)
	out, err := e.ClassifyBatchToJSON([]string{"a,b", "x,y"})
	require.NoError(t, err)

	var results []ClassifyResultJSON
	require.NoError(t, json.Unmarshal(out, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "yes", results[0].Category)
	assert.Equal(t, "no", results[1].Category)
}

package classifier

import "encoding/json"

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// SettingsJSON is the JSON shape of the "query"/"show settings" dump.
type SettingsJSON struct {
	Algorithm string   `json:"algorithm"`
	Weighting string   `json:"weighting"`
	Neighbors int      `json:"neighbors"`
	Verbosity []string `json:"verbosity"`
}

// SettingsToJSON renders the current option state for the JSON protocol.
func (e *Experiment) SettingsToJSON() ([]byte, error) {
	return marshalJSON(SettingsJSON{
		Algorithm: e.AlgorithmName(),
		Weighting: e.base.weighting.String(),
		Neighbors: e.opts.K,
		Verbosity: verbosityLabels(e.opts.Verbosity),
	})
}

func verbosityLabels(v VerbosityFlag) []string {
	var out []string
	for _, l := range []struct {
		flag VerbosityFlag
		name string
	}{
		{DISTRIB, "DISTRIB"},
		{DISTANCE, "DISTANCE"},
		{MATCH_DEPTH, "MATCH_DEPTH"},
		{CONFIDENCE, "CONFIDENCE"},
		{NEAR_N, "NEAR_N"},
	} {
		if v&l.flag != 0 {
			out = append(out, l.name)
		}
	}
	return out
}

// WeightJSON is one feature's weight.
type WeightJSON struct {
	Index  int     `json:"index"`
	Weight float64 `json:"weight"`
}

// WeightsToJSON renders the base's per-feature weight vector.
func (e *Experiment) WeightsToJSON() ([]byte, error) {
	weights := make([]WeightJSON, len(e.base.weights))
	for i, w := range e.base.weights {
		weights[i] = WeightJSON{Index: i, Weight: w}
	}
	return marshalJSON(struct {
		Weights []WeightJSON `json:"weights"`
	}{weights})
}

// NeighborJSON is one neighbor entry in a JSON neighbors array.
type NeighborJSON struct {
	Class    string  `json:"class"`
	Distance float64 `json:"distance"`
}

// NeighborsToJSON renders the neighbors consulted by the most recent
// Classify call.
func (e *Experiment) NeighborsToJSON() ([]byte, error) {
	out := make([]NeighborJSON, len(e.lastNeighbors))
	for i, n := range e.lastNeighbors {
		out[i] = NeighborJSON{Class: n.Class, Distance: n.Distance}
	}
	return marshalJSON(out)
}

// ClassifyResultJSON is the §4.5.1 per-input classify result shape.
type ClassifyResultJSON struct {
	Category   string             `json:"category,omitempty"`
	Distrib    map[string]float64 `json:"distribution,omitempty"`
	Distance   *float64           `json:"distance,omitempty"`
	MatchDepth *float64           `json:"match_depth,omitempty"`
	Confidence *float64           `json:"confidence,omitempty"`
	Neighbors  []NeighborJSON     `json:"neighbors,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// classifyResultJSON runs Classify on a single input and shapes the
// result per §4.5.1: an "error" key alone on failure, otherwise category
// plus whichever decorations are currently verbose.
func (e *Experiment) classifyResultJSON(input string) ClassifyResultJSON {
	cat, _, distance, err := e.Classify(input)
	if err != nil {
		return ClassifyResultJSON{Error: "timbl:classify(" + input + ") failed"}
	}
	result := ClassifyResultJSON{Category: cat}
	if e.Verbosity(DISTRIB) {
		distrib := make(map[string]float64, len(e.lastVotes))
		for class, w := range e.lastVotes {
			distrib[class] = w
		}
		result.Distrib = distrib
	}
	if e.Verbosity(DISTANCE) {
		d := distance
		result.Distance = &d
	}
	if e.Verbosity(MATCH_DEPTH) {
		md := e.MatchDepth()
		result.MatchDepth = &md
	}
	if e.Verbosity(CONFIDENCE) {
		c := e.Confidence()
		result.Confidence = &c
	}
	if e.Verbosity(NEAR_N) && len(e.lastNeighbors) > 0 {
		ns := make([]NeighborJSON, len(e.lastNeighbors))
		for i, n := range e.lastNeighbors {
			ns[i] = NeighborJSON{Class: n.Class, Distance: n.Distance}
		}
		result.Neighbors = ns
	}
	return result
}

// ClassifyToJSON is the single-input counterpart of ClassifyBatchToJSON,
// used by the JSON protocol handler's single-"param" classify path.
func (e *Experiment) ClassifyToJSON(input string) ([]byte, error) {
	return marshalJSON(e.classifyResultJSON(input))
}

package classifier

import "encoding/xml"

// SettingsXML is the typed shape of the "settings" dump embedded under
// the HTTP handler's <TiMblResult> document when "show=settings" is
// requested.
type SettingsXML struct {
	XMLName   xml.Name `xml:"settings"`
	Algorithm string   `xml:"algorithm"`
	Weighting string   `xml:"weighting"`
	Neighbors int      `xml:"neighbors"`
	Verbosity string   `xml:"verbosity"`
}

// SettingsToXML renders the current option state as a typed XML node
// the HTTP handler can embed directly under <TiMblResult>.
func (e *Experiment) SettingsToXML() *SettingsXML {
	return &SettingsXML{
		Algorithm: e.AlgorithmName(),
		Weighting: e.base.weighting.String(),
		Neighbors: e.opts.K,
		Verbosity: verbosityLabel(e.opts.Verbosity),
	}
}

// WeightXML is one feature's weight, index is 0-based feature position.
type WeightXML struct {
	Index  int     `xml:"index,attr"`
	Weight float64 `xml:",chardata"`
}

// WeightsXML is the typed shape of the "weights" dump.
type WeightsXML struct {
	XMLName xml.Name    `xml:"weights"`
	Weight  []WeightXML `xml:"weight"`
}

// WeightsToXML renders the base's per-feature weight vector.
func (e *Experiment) WeightsToXML() *WeightsXML {
	out := &WeightsXML{Weight: make([]WeightXML, len(e.base.weights))}
	for i, w := range e.base.weights {
		out.Weight[i] = WeightXML{Index: i, Weight: w}
	}
	return out
}

// NeighborXML is one neighbor entry in an XML neighbors block.
type NeighborXML struct {
	Class    string  `xml:"class"`
	Distance float64 `xml:"distance"`
}

// NeighborsXML is the typed shape of a classification's neighbor list.
type NeighborsXML struct {
	XMLName  xml.Name      `xml:"neighbors"`
	Neighbor []NeighborXML `xml:"neighbor"`
}

// NeighborsToXML renders the neighbors consulted by the most recent
// Classify call.
func (e *Experiment) NeighborsToXML() *NeighborsXML {
	out := &NeighborsXML{Neighbor: make([]NeighborXML, len(e.lastNeighbors))}
	for i, n := range e.lastNeighbors {
		out.Neighbor[i] = NeighborXML{Class: n.Class, Distance: n.Distance}
	}
	return out
}

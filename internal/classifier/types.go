package classifier

import (
	"fmt"
	"strings"
)

// VerbosityFlag controls which optional decorations a classification
// response carries. Bits are independent and combine with bitwise OR.
type VerbosityFlag uint8

const (
	DISTRIB VerbosityFlag = 1 << iota
	DISTANCE
	MATCH_DEPTH
	CONFIDENCE
	NEAR_N
)

// DefaultVerbosity matches the server's default of showing the category
// distribution unless a session explicitly turns it off.
const DefaultVerbosity = DISTRIB

// Algorithm names the nearest-neighbor family an experiment was loaded
// with. Only the metadata (AlgorithmName, the HTTP "algorithm" attribute,
// the -u/IGTREE rejection rule) depends on it; the search itself is a
// single weighted-overlap k-NN shared by all algorithms, since the exact
// decision-tree/compression behavior of IGTREE/TRIBL/TRIBL2 is part of
// the opaque engine this server fronts, not the wire contract it serves.
type Algorithm int

const (
	IB1 Algorithm = iota
	IGTREE
	TRIBL
	TRIBL2
)

func (a Algorithm) String() string {
	switch a {
	case IB1:
		return "IB1"
	case IGTREE:
		return "IGTree"
	case TRIBL:
		return "TRIBL"
	case TRIBL2:
		return "TRIBL2"
	default:
		return "IB1"
	}
}

// ParseAlgorithm accepts the -a option value from a base's loader string.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(s) {
	case "IB1":
		return IB1, nil
	case "IGTREE":
		return IGTREE, nil
	case "TRIBL":
		return TRIBL, nil
	case "TRIBL2":
		return TRIBL2, nil
	default:
		return IB1, fmt.Errorf("illegal -a value: %s", s)
	}
}

// Weighting names a per-feature weighting scheme. The formulas themselves
// (gain ratio, information gain, chi-squared, shared variance) are the
// opaque engine's business; a loaded weight file supplies the numbers,
// this type only carries the label through to settings/weights dumps.
type Weighting int

const (
	GR Weighting = iota
	IG
	X2
	SV
)

func (w Weighting) String() string {
	switch w {
	case GR:
		return "GR"
	case IG:
		return "IG"
	case X2:
		return "X2"
	case SV:
		return "SV"
	default:
		return "GR"
	}
}

// ParseWeighting accepts the ":<type>" suffix of a -w option value.
func ParseWeighting(s string) (Weighting, error) {
	switch strings.ToUpper(s) {
	case "GR":
		return GR, nil
	case "IG":
		return IG, nil
	case "X2":
		return X2, nil
	case "SV":
		return SV, nil
	default:
		return GR, fmt.Errorf("invalid weighting option: %s", s)
	}
}

// Options is a session's mutable classification configuration: verbosity
// decorations, the neighbor count, and a weighting label. Settings dumps
// report the Base's weighting, not this field. SetOptions replaces an
// Options value wholesale so a rejected SET can never partially land.
type Options struct {
	Verbosity VerbosityFlag
	K         int
	Weighting Weighting
}

// DefaultOptions matches the server's documented defaults: DISTRIB on,
// single nearest neighbor, gain-ratio weighting label.
func DefaultOptions() Options {
	return Options{
		Verbosity: DefaultVerbosity,
		K:         1,
		Weighting: GR,
	}
}

func (o Options) has(f VerbosityFlag) bool {
	return o.Verbosity&f != 0
}

package classifier

import (
	"errors"
	"fmt"

	"github.com/tidwall/btree"
)

var (
	ErrNoInstances    = errors.New("base has no instances")
	ErrIllegalWeights = errors.New("weight count does not match feature count")
)

// Base is a fully trained, immutable classifier addressable by name.
// Once constructed it is never mutated; every session works on its own
// Clone instead. This is the server's analogue of the teacher's engine
// Books map: built once before any connection is accepted, then shared
// read-only.
type Base struct {
	name          string
	algorithm     Algorithm
	weighting     Weighting
	instances     []Instance
	weights       []float64
	numFeatures   int
	probabilities map[int]map[string]float64
	matrices      map[int]map[[2]string]float64
}

// NewBase validates and freezes a trained instance base under name.
func NewBase(name string, algorithm Algorithm, weighting Weighting, instances []Instance, weights []float64) (*Base, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	numFeatures := len(instances[0].Features)
	for _, inst := range instances {
		if len(inst.Features) != numFeatures {
			return nil, ErrFeatureMismatch
		}
	}
	if weights == nil {
		weights = uniformWeights(numFeatures)
	} else if len(weights) != numFeatures {
		return nil, ErrIllegalWeights
	}

	// Defensive copies: the Base must never share backing arrays with
	// whatever the loader held, so nothing outside this package can
	// mutate it after construction.
	frozenInstances := make([]Instance, len(instances))
	for i, inst := range instances {
		frozenInstances[i] = Instance{
			Features: append([]string(nil), inst.Features...),
			Class:    inst.Class,
		}
	}
	frozenWeights := make([]float64, len(weights))
	copy(frozenWeights, weights)

	return &Base{
		name:        name,
		algorithm:   algorithm,
		weighting:   weighting,
		instances:   frozenInstances,
		weights:     frozenWeights,
		numFeatures: numFeatures,
	}, nil
}

// ApplyProbabilities attaches a per-feature value-probability table
// loaded by LoadProbabilities (a -u probfile), validating every feature
// index it names is in range. Like the weights NewBase takes, this is
// one-time construction: call it before the Base is published to a
// BaseMap, never after.
func (b *Base) ApplyProbabilities(probs map[int]map[string]float64) error {
	for idx := range probs {
		if idx < 0 || idx >= b.numFeatures {
			return fmt.Errorf("probability table references feature %d, base has %d", idx, b.numFeatures)
		}
	}
	b.probabilities = probs
	return nil
}

// ApplyMatrices attaches a per-feature pairwise value-dissimilarity
// table loaded by LoadMatrices (a --matrixin matrixfile), with the same
// one-time-construction caveat as ApplyProbabilities.
func (b *Base) ApplyMatrices(matrices map[int]map[[2]string]float64) error {
	for idx := range matrices {
		if idx < 0 || idx >= b.numFeatures {
			return fmt.Errorf("matrix table references feature %d, base has %d", idx, b.numFeatures)
		}
	}
	b.matrices = matrices
	return nil
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0
	}
	return w
}

// Name returns the base's configured name.
func (b *Base) Name() string { return b.name }

// Clone returns an owned per-session Experiment bound to id (the caller
// supplies "exp-<sessionID>"). The Experiment is the only thing that may
// carry mutable state; the Base itself is read-only for the rest of its
// lifetime.
func (b *Base) Clone(id string) *Experiment {
	return &Experiment{
		base: b,
		id:   id,
		opts: DefaultOptions(),
	}
}

// candidate is one training instance scored against a query, ordered
// ascending by distance with a stable tie-break on its original index so
// equal-distance neighbors are drained in instance-base order.
type candidate struct {
	distance float64
	seq      int
	instance Instance
}

func candidateLess(a, b *candidate) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.seq < b.seq
}

// nearestNeighbors scores every training instance against query and
// drains the k closest in ascending-distance order.
//
// The drain shape -- insert every candidate into an ordered tree, then
// repeatedly take and remove its minimum until k results are collected
// -- mirrors how a price-time order book consumes the best bid or ask
// off a btree.BTreeG one price level at a time until the sweep is done.
func (b *Base) nearestNeighbors(query []string, k int) []candidate {
	if k <= 0 {
		k = 1
	}
	tree := btree.NewBTreeG(candidateLess)
	for i, inst := range b.instances {
		tree.Set(&candidate{
			distance: b.distanceTo(query, inst.Features),
			seq:      i,
			instance: inst,
		})
	}

	results := make([]candidate, 0, k)
	for len(results) < k {
		c, ok := tree.Min()
		if !ok {
			break
		}
		tree.Delete(c)
		results = append(results, *c)
	}
	return results
}

// overlapDistance is the classic weighted overlap metric: each feature
// that differs between query and instance contributes its configured
// weight; matching features contribute nothing. Queries shorter or
// longer than the base's feature count are padded/truncated rather than
// rejected, so a malformed CLASSIFY input still gets a (probably poor)
// answer instead of silently aborting the session.
func overlapDistance(query, instFeatures []string, weights []float64) float64 {
	var d float64
	n := len(instFeatures)
	for i := 0; i < n; i++ {
		var qv string
		if i < len(query) {
			qv = query[i]
		}
		if qv != instFeatures[i] {
			d += weights[i]
		}
	}
	return d
}

// distanceTo is overlapDistance generalized with the two optional
// per-feature overrides ApplyProbabilities/ApplyMatrices attach: a
// matrix entry (if both the query and instance value are covered)
// replaces a feature's flat mismatch cost outright; otherwise a
// probability entry for the instance's value scales the feature's
// weight by (1 - probability). A Base with neither override attached
// produces exactly overlapDistance's result.
func (b *Base) distanceTo(query, instFeatures []string) float64 {
	if len(b.matrices) == 0 && len(b.probabilities) == 0 {
		return overlapDistance(query, instFeatures, b.weights)
	}
	var d float64
	n := len(instFeatures)
	for i := 0; i < n; i++ {
		var qv string
		if i < len(query) {
			qv = query[i]
		}
		iv := instFeatures[i]
		if qv == iv {
			continue
		}
		if m, ok := b.matrices[i]; ok {
			if dist, ok := m[pairKey(qv, iv)]; ok {
				d += dist
				continue
			}
		}
		weight := b.weights[i]
		if p, ok := b.probabilities[i]; ok {
			if prob, ok := p[iv]; ok {
				weight *= 1 - prob
			}
		}
		d += weight
	}
	return d
}

// pairKey canonicalizes an unordered value pair so a symmetric matrix
// lookup works regardless of which side is the query and which is the
// instance.
func pairKey(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

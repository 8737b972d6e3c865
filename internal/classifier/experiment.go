package classifier

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrClassifyFailed = errors.New("classify failed")
	ErrOptionSyntax   = errors.New("set options failed")
)

// Neighbor is one of the k training instances consulted for the most
// recent Classify call, exposed for the NEIGHBORS text block and the
// XML/JSON neighbor renderings.
type Neighbor struct {
	Class    string
	Distance float64
	Features []string
}

// Experiment is a per-session clone of a Base. It owns its own mutable
// option state and the scratch state left behind by the last
// classification -- the engine capability set in spec.md §4.1 treats
// MatchDepth/Confidence/NeighborsToXML/NeighborsToJSON as separate
// accessor calls made *after* Classify, so that state has to live
// somewhere between the two calls. It lives here, never on the Base.
type Experiment struct {
	base *Base
	id   string
	opts Options

	sink     io.Writer
	sinkJSON bool

	lastCategory     string
	lastDistribution string
	lastVotes        map[string]float64
	lastDistance     float64
	lastMatchDepth   float64
	lastConfidence   float64
	lastNeighbors    []Neighbor
	haveResult       bool
}

// Name returns the session-scoped experiment name (e.g. "exp-3").
func (e *Experiment) Name() string { return e.id }

// AlgorithmName reports the algorithm label the base was loaded with.
func (e *Experiment) AlgorithmName() string { return e.base.algorithm.String() }

// ConnectToSink binds the engine's internal trace messages to w. jsonMode
// selects whether trace lines are emitted as JSON objects or as freeform
// text. A fresh Clone has no sink and writes no trace lines; none of the
// protocol handlers connects one.
func (e *Experiment) ConnectToSink(w io.Writer, jsonMode bool) {
	e.sink = w
	e.sinkJSON = jsonMode
}

func (e *Experiment) trace(input, category, distribution string, distance float64) {
	if e.sink == nil {
		return
	}
	if e.sinkJSON {
		fmt.Fprintf(e.sink, `{"trace":"classify","experiment":%q,"input":%q,"category":%q,"distance":%g}`+"\n",
			e.id, input, category, distance)
		return
	}
	fmt.Fprintf(e.sink, "%s:%s --> %s %s %g\n", e.id, input, category, distribution, distance)
}

// Verbosity reports whether flag is currently set for this session.
func (e *Experiment) Verbosity(flag VerbosityFlag) bool {
	return e.opts.has(flag)
}

// MatchDepth is the count of query features that agreed with the nearest
// neighbor found by the most recent Classify call.
func (e *Experiment) MatchDepth() float64 { return e.lastMatchDepth }

// Confidence is the nearest class's share of the total neighbor vote
// weight from the most recent Classify call.
func (e *Experiment) Confidence() float64 { return e.lastConfidence }

// Neighbors returns the k nearest training instances consulted by the
// most recent Classify call, nearest first.
func (e *Experiment) Neighbors() []Neighbor { return e.lastNeighbors }

// SetOptions parses spec as a two-phase operation: the whole string must
// parse before any part of it is applied, so a rejected SET leaves the
// session's prior option state byte-for-byte intact.
func (e *Experiment) SetOptions(spec string) error {
	pending := e.opts
	tokens := strings.Fields(spec)
	if len(tokens) == 0 {
		return ErrOptionSyntax
	}
	for _, tok := range tokens {
		if err := applyOption(&pending, tok); err != nil {
			return err
		}
	}
	e.opts = pending
	return nil
}

func applyOption(opts *Options, tok string) error {
	if len(tok) < 2 {
		return fmt.Errorf("%w: %q", ErrOptionSyntax, tok)
	}
	sign := tok[0]
	if sign != '+' && sign != '-' {
		return fmt.Errorf("%w: %q", ErrOptionSyntax, tok)
	}
	enable := sign == '+'
	body := tok[1:]

	if rest, ok := strings.CutPrefix(body, "k:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %q", ErrOptionSyntax, tok)
		}
		opts.K = n
		return nil
	}

	var flag VerbosityFlag
	switch strings.ToLower(body) {
	case "db":
		flag = DISTRIB
	case "di":
		flag = DISTANCE
	case "md":
		flag = MATCH_DEPTH
	case "cs":
		flag = CONFIDENCE
	case "near":
		flag = NEAR_N
	default:
		return fmt.Errorf("%w: %q", ErrOptionSyntax, tok)
	}
	if enable {
		opts.Verbosity |= flag
	} else {
		opts.Verbosity &^= flag
	}
	return nil
}

// Classify searches the k nearest training instances and returns the
// winning category, its rendered distribution, and the nearest
// neighbor's distance. Verbosity-gated extras (match depth, confidence,
// neighbors) are read afterward through MatchDepth/Confidence/Neighbors.
//
// On failure no category is produced and the session's prior scratch
// state (from the last successful classification) is left untouched, so
// a caller that ignores the error and calls Neighbors() anyway sees the
// previous result rather than a half-built one.
func (e *Experiment) Classify(input string) (category, distribution string, distance float64, err error) {
	query := splitInstance(input)
	if len(query) == 0 || (len(query) == 1 && query[0] == "") {
		return "", "", 0, ErrEmptyInstance
	}

	neighbors := e.base.nearestNeighbors(query, e.opts.K)
	if len(neighbors) == 0 {
		return "", "", 0, ErrClassifyFailed
	}

	cat, distrib, votes, nearestDistance, matchDepth, confidence, ns := tally(neighbors, query)

	e.lastCategory = cat
	e.lastDistribution = distrib
	e.lastVotes = votes
	e.lastDistance = nearestDistance
	e.lastMatchDepth = matchDepth
	e.lastConfidence = confidence
	e.lastNeighbors = ns
	e.haveResult = true

	e.trace(input, cat, distrib, nearestDistance)
	return cat, distrib, nearestDistance, nil
}

// tally turns a set of scored neighbors into a winning category, a
// rendered distribution, the nearest distance, the match depth of the
// nearest neighbor against query, the winner's confidence share, and the
// typed Neighbor list (for NEIGHBORS / neighbors rendering).
func tally(cands []candidate, query []string) (category, distribution string, votes map[string]float64, nearestDistance, matchDepth, confidence float64, neighbors []Neighbor) {
	votes = map[string]float64{}
	total := 0.0
	neighbors = make([]Neighbor, 0, len(cands))
	for _, c := range cands {
		weight := 1.0 / (1.0 + c.distance)
		votes[c.instance.Class] += weight
		total += weight
		neighbors = append(neighbors, Neighbor{
			Class:    c.instance.Class,
			Distance: c.distance,
			Features: c.instance.Features,
		})
	}

	type scored struct {
		class  string
		weight float64
	}
	scoredList := make([]scored, 0, len(votes))
	for class, w := range votes {
		scoredList = append(scoredList, scored{class, w})
	}
	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].weight != scoredList[j].weight {
			return scoredList[i].weight > scoredList[j].weight
		}
		return scoredList[i].class < scoredList[j].class
	})

	category = scoredList[0].class
	if total > 0 {
		confidence = scoredList[0].weight / total
	}

	nearestDistance = cands[0].distance
	nearest := cands[0].instance.Features
	for i := 0; i < len(query) && i < len(nearest); i++ {
		if query[i] == nearest[i] {
			matchDepth++
		}
	}

	var sb strings.Builder
	sb.WriteString("{")
	for i, s := range scoredList {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, " %s %g", s.class, s.weight)
	}
	sb.WriteString(" }")
	distribution = sb.String()

	return category, distribution, votes, nearestDistance, matchDepth, confidence, neighbors
}

// ClassifyBatchToJSON is the JSON server's convenience entry point for a
// multi-input "classify" request: it runs Classify once per input and
// renders each outcome as the §4.5.1 result object, preserving order.
func (e *Experiment) ClassifyBatchToJSON(inputs []string) ([]byte, error) {
	results := make([]ClassifyResultJSON, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, e.classifyResultJSON(in))
	}
	return marshalJSON(results)
}

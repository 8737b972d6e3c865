package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/LanguageMachines/timblserver/internal/classifier"
)

// Load reads path as the §6.1 configuration grammar, builds the global
// Configuration, and runs every experiment declaration through
// startExperiments. Startup aborts (non-nil error) only if the resulting
// BaseMap ends up empty -- an individual bad experiment line is logged
// and skipped, not fatal, exactly as original_source's startExperiments.
func Load(path string) (Configuration, *BaseMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return Configuration{}, nil, err
	}
	defer f.Close()

	ini, err := parseINI(f)
	if err != nil {
		return Configuration{}, nil, err
	}

	cfg, err := parseGlobal(ini)
	if err != nil {
		return Configuration{}, nil, err
	}

	bases := startExperiments(ini)
	if bases.Len() == 0 {
		return Configuration{}, nil, ErrNoExperimentsStarted
	}
	return cfg, bases, nil
}

// startExperiments builds a BaseMap from every experiment declaration in
// ini, per spec.md §4.7 / original_source's function of the same name.
// `[experiments]` keys are base declarations. When that section is
// absent, every `[global]` key outside the reserved set is treated as a
// base declaration instead (spec.md §6.1's legacy-compatibility rule,
// §9 design note (c)) and a warning is logged for each one.
func startExperiments(ini *iniFile) *BaseMap {
	bases := NewBaseMap()

	declarations := experimentDeclarations(ini)
	for _, decl := range declarations {
		base, err := loadExperiment(decl.name, decl.options)
		if err != nil {
			log.Error().Err(err).Str("experiment", decl.name).Msg("FAILED to start experiment")
			continue
		}
		bases.Insert(decl.name, base)
		log.Info().Str("experiment", decl.name).Msg("started experiment")
	}
	return bases
}

type experimentDecl struct {
	name    string
	options string
}

func experimentDeclarations(ini *iniFile) []experimentDecl {
	if ini.has("experiments") {
		var out []experimentDecl
		for _, key := range ini.keys("experiments") {
			value, _ := ini.get("experiments", key)
			out = append(out, experimentDecl{name: key, options: value})
		}
		return out
	}

	var out []experimentDecl
	for _, key := range ini.keys("global") {
		if reservedGlobalKeys[key] {
			continue
		}
		value, _ := ini.get("global", key)
		log.Warn().Str("key", key).Msg("treating non-reserved [global] key as a legacy experiment declaration")
		out = append(out, experimentDecl{name: key, options: value})
	}
	return out
}

// loaderOptions is the parsed form of one experiment's option string,
// spec.md §4.7: `-a <algo>`, exactly one of `-f <trainfile>`/`-i
// <treefile>`, optional `-u <probfile>` (rejected with IGTREE), optional
// `-w <weightfile>[:<type>]`, optional `--matrixin <matrixfile>`.
type loaderOptions struct {
	algorithm  classifier.Algorithm
	trainFile  string
	treeFile   string
	probFile   string
	weightFile string
	weighting  classifier.Weighting
	matrixFile string
}

// LoadExperiment builds a single Base from a raw engine-option string
// (`-a`, `-f`/`-i`, `-u`, `-w`, `--matrixin`), exported for the CLI
// launcher's "-f datafile [engine options]" one-off startup mode, which
// has no config file to run through startExperiments.
func LoadExperiment(name, optionString string) (*classifier.Base, error) {
	return loadExperiment(name, optionString)
}

func loadExperiment(name, optionString string) (*classifier.Base, error) {
	opts, err := parseLoaderOptions(optionString)
	if err != nil {
		return nil, err
	}

	var instances []classifier.Instance
	switch {
	case opts.trainFile != "":
		instances, err = classifier.LoadInstances(opts.trainFile)
	case opts.treeFile != "":
		instances, err = classifier.LoadInstances(opts.treeFile)
	default:
		return nil, ErrMissingTrainOrTree
	}
	if err != nil {
		return nil, err
	}

	var weights []float64
	if opts.weightFile != "" {
		weights, err = classifier.LoadWeights(opts.weightFile)
		if err != nil {
			return nil, err
		}
	}

	base, err := classifier.NewBase(name, opts.algorithm, opts.weighting, instances, weights)
	if err != nil {
		return nil, err
	}

	// Sequentially apply the two remaining optional refinements, per
	// spec.md §4.7 step 3 / original_source's GetArrays/GetMatrices.
	if opts.probFile != "" {
		probs, err := classifier.LoadProbabilities(opts.probFile)
		if err != nil {
			return nil, err
		}
		if err := base.ApplyProbabilities(probs); err != nil {
			return nil, err
		}
	}
	if opts.matrixFile != "" {
		matrices, err := classifier.LoadMatrices(opts.matrixFile)
		if err != nil {
			return nil, err
		}
		if err := base.ApplyMatrices(matrices); err != nil {
			return nil, err
		}
	}

	return base, nil
}

func parseLoaderOptions(s string) (loaderOptions, error) {
	opts := loaderOptions{
		algorithm: classifier.IB1,
		weighting: classifier.GR,
	}

	tokens := strings.Fields(s)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		next := func() string {
			i++
			if i < len(tokens) {
				return tokens[i]
			}
			return ""
		}

		switch {
		case tok == "-a":
			algo, err := classifier.ParseAlgorithm(next())
			if err != nil {
				return loaderOptions{}, err
			}
			opts.algorithm = algo
		case tok == "-f":
			opts.trainFile = next()
		case tok == "-i":
			opts.treeFile = next()
		case tok == "-u":
			opts.probFile = next()
		case tok == "-w":
			val := next()
			name, weighting, ok := strings.Cut(val, ":")
			opts.weightFile = name
			if ok {
				w, err := classifier.ParseWeighting(weighting)
				if err != nil {
					return loaderOptions{}, err
				}
				opts.weighting = w
			}
		case tok == "--matrixin":
			opts.matrixFile = next()
		}
	}

	if opts.trainFile == "" && opts.treeFile == "" {
		return loaderOptions{}, ErrMissingTrainOrTree
	}
	if opts.trainFile != "" && opts.treeFile != "" {
		return loaderOptions{}, ErrBothTrainAndTree
	}
	if opts.probFile != "" && opts.algorithm == classifier.IGTREE {
		return loaderOptions{}, ErrProbFileWithIGTree
	}
	return opts, nil
}

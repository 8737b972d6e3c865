package classifier

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Instance is one training example: an ordered feature vector and the
// class it was labeled with. The feature encoding is opaque to the wire
// protocols; only the loader and the distance metric look inside it.
type Instance struct {
	Features []string
	Class    string
}

var (
	ErrEmptyInstance  = errors.New("empty instance")
	ErrFeatureMismatch = errors.New("instance has wrong number of features")
)

// splitInstance tokenizes the comma-separated instance string a CLASSIFY
// command (or an instance-base line) carries. Leading/trailing space on
// each field is trimmed, matching how the loader reads training files.
func splitInstance(s string) []string {
	parts := strings.Split(s, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		fields = append(fields, strings.TrimSpace(p))
	}
	return fields
}

// LoadInstances reads a comma-separated instance-base file: one instance
// per line, the final field is the class label. Both -f (train) and -i
// (pre-built tree) loader options resolve here — the distinction the
// original engine makes between "train from examples" and "load a
// compiled tree" is internal to the opaque engine; either way the server
// ends up with a flat, immutable instance list to search.
func LoadInstances(path string) ([]Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseInstances(f)
}

func parseInstances(r io.Reader) ([]Instance, error) {
	var instances []Instance
	scanner := bufio.NewScanner(r)
	nFeatures := -1
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := splitInstance(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: need at least one feature and a class", lineNo)
		}
		if nFeatures == -1 {
			nFeatures = len(fields) - 1
		} else if len(fields)-1 != nFeatures {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrFeatureMismatch)
		}
		instances = append(instances, Instance{
			Features: fields[:len(fields)-1],
			Class:    fields[len(fields)-1],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, ErrEmptyInstance
	}
	return instances, nil
}

// LoadWeights reads a per-feature weight file: one floating point weight
// per line, in feature order. A missing or unreadable file is an error.
// Callers with no -w option do not call this and pass nil weights to
// NewBase, which then uses uniform weights.
func LoadWeights(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var weights []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		valueField := fields[len(fields)-1]
		var w float64
		if _, err := fmt.Sscanf(valueField, "%g", &w); err != nil {
			return nil, fmt.Errorf("bad weight line %q: %w", line, err)
		}
		weights = append(weights, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return weights, nil
}

// LoadProbabilities reads a per-feature value-probability table for a -u
// probfile: one entry per line, "<featureIndex> <value> <probability>".
// Applied via Base.ApplyProbabilities, a mismatch against a value the
// table covers is scaled by (1 - probability) instead of the feature's
// flat weight -- a value the table marks as common contributes less to
// the distance than one it marks as rare.
func LoadProbabilities(path string) (map[int]map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	probs := make(map[int]map[string]float64)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("probability file line %d: need <feature> <value> <probability>", lineNo)
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("probability file line %d: bad feature index: %w", lineNo, err)
		}
		p, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("probability file line %d: bad probability: %w", lineNo, err)
		}
		if probs[idx] == nil {
			probs[idx] = make(map[string]float64)
		}
		probs[idx][fields[1]] = p
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return probs, nil
}

// LoadMatrices reads a per-feature pairwise value-dissimilarity table
// for a --matrixin matrixfile: one entry per line, "<featureIndex>
// <value1> <value2> <distance>". Applied via Base.ApplyMatrices, a
// feature's entry replaces its flat mismatch cost outright whenever both
// the query and instance value are covered.
func LoadMatrices(path string) (map[int]map[[2]string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	matrices := make(map[int]map[[2]string]float64)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("matrix file line %d: need <feature> <value1> <value2> <distance>", lineNo)
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("matrix file line %d: bad feature index: %w", lineNo, err)
		}
		d, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("matrix file line %d: bad distance: %w", lineNo, err)
		}
		if matrices[idx] == nil {
			matrices[idx] = make(map[[2]string]float64)
		}
		matrices[idx][pairKey(fields[1], fields[2])] = d
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return matrices, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExperiment_BuildsBaseFromTrainFile(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")

	base, err := loadExperiment("news", "-a IB1 -f "+train)
	require.NoError(t, err)
	assert.Equal(t, "news", base.Name())
}

func TestLoadExperiment_FailsWhenTrainFileMissing(t *testing.T) {
	_, err := loadExperiment("news", "-f /no/such/file.train")
	assert.Error(t, err)
}

func TestLoadExperiment_AppliesProbabilitiesFile(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")
	probs := writeFile(t, dir, "news.probs", "0 a 0.9\n")

	base, err := loadExperiment("news", "-f "+train+" -u "+probs)
	require.NoError(t, err)
	assert.Equal(t, "news", base.Name())
}

func TestLoadExperiment_FailsWhenProbabilitiesFileMalformed(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")
	probs := writeFile(t, dir, "news.probs", "not a valid line\n")

	_, err := loadExperiment("news", "-f "+train+" -u "+probs)
	assert.Error(t, err)
}

func TestLoadExperiment_AppliesMatrixFile(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")
	matrix := writeFile(t, dir, "news.matrix", "0 a c 0.5\n")

	base, err := loadExperiment("news", "-f "+train+" --matrixin "+matrix)
	require.NoError(t, err)
	assert.Equal(t, "news", base.Name())
}

func TestLoadExperiment_FailsWhenMatrixFileMissing(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")

	_, err := loadExperiment("news", "-f "+train+" --matrixin /no/such/file.matrix")
	assert.Error(t, err)
}

func TestStartExperiments_SkipsFailingEntriesButKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")

	f, err := parseINI(strings.NewReader(`
[global]
port = 7000

[experiments]
news = -f ` + train + `
broken = -f /no/such/file.train
`))
	require.NoError(t, err)

	bases := startExperiments(f)
	assert.Equal(t, 1, bases.Len())
	_, ok := bases.Get("news")
	assert.True(t, ok)
	_, ok = bases.Get("broken")
	assert.False(t, ok)
}

func TestLoad_ReadsFullConfigFile(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "news.train", "a,b,yes\nc,d,no\n")
	configPath := writeFile(t, dir, "server.conf", `
[global]
port = 7000
protocol = tcp

[experiments]
news = -f `+train+`
`)

	cfg, bases, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, 1, bases.Len())
}

func TestLoad_AbortsWhenNoExperimentsStart(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "server.conf", `
[global]
port = 7000

[experiments]
broken = -f /no/such/file.train
`)

	_, _, err := Load(configPath)
	assert.ErrorIs(t, err, ErrNoExperimentsStarted)
}

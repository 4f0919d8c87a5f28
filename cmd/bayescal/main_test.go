package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bayescal/internal/optim"
	"github.com/born-ml/bayescal/internal/proba"
	"github.com/born-ml/bayescal/internal/serialization"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeConfig(t, `
method: gd
dim: 2
target: [1, 2]
init_mean: [0.5, 0.5]
temperature: 0.5
eta: 0.2
chain_length: 5
per_step: [10, 20, 30, 40, 50]
momentum: 0.3
index_train: [0, 1, 2]
seed: 7
`)
	rc, err := loadRunConfig(path)
	require.NoError(t, err)

	g, cfg, err := rc.build()
	require.NoError(t, err)
	assert.Equal(t, 2, g.SampleDim())
	assert.Equal(t, optim.MethodGD, cfg.Method)
	assert.Equal(t, []float64{0.5, 0.5, 0, 0}, []float64(cfg.Post))
	assert.Equal(t, []float64{0, 0, 0, 0}, []float64(cfg.Prior))
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, []int{10, 20, 30, 40, 50}, cfg.PerStep)
	assert.Equal(t, []int{0, 1, 2}, cfg.IndexTrain)
	assert.Equal(t, uint64(7), cfg.Seed)
}

func TestLoadRunConfig_Defaults(t *testing.T) {
	rc, err := loadRunConfig("")
	require.NoError(t, err)
	_, cfg, err := rc.build()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 20, cfg.ChainLength)
}

func TestBuild_Errors(t *testing.T) {
	rc := defaultRunConfig()
	rc.Target = []float64{1, 2}
	_, _, err := rc.build()
	assert.Error(t, err)

	rc = defaultRunConfig()
	rc.Method = "newton"
	_, _, err = rc.build()
	assert.Error(t, err)
}

func TestObjective_BothForms(t *testing.T) {
	rc := defaultRunConfig()
	obj := rc.objective()
	require.NotNil(t, obj.Loss)
	require.NotNil(t, obj.Batch)

	v, err := obj.Loss(t.Context(), []float64{3})
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	vs, err := obj.Batch(t.Context(), []proba.Sample{{3}, {5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 0}, vs)
}

func TestRunAndInspect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, `
chain_length: 5
per_step: [50]
momentum: 0.2
gen_decay: 0.5
vectorized: true
seed: 3
`)
	ckpt := filepath.Join(dir, "run.bcal")

	out, err := execute(t, "run", "--config", cfgPath, "--out", ckpt)
	require.NoError(t, err)
	assert.Contains(t, out, "converged:")
	assert.Contains(t, out, "checkpoint: "+ckpt)

	loaded, err := serialization.LoadFile(ckpt)
	require.NoError(t, err)
	assert.Equal(t, "gaussian", loaded.Metadata["family"])
	assert.Equal(t, 250, loaded.Samples.Capacity())

	out, err = execute(t, "inspect", ckpt)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:")
	assert.Contains(t, out, "meta.method: gradient-based")

	resumed := filepath.Join(dir, "run2.bcal")
	_, err = execute(t, "run", "--config", cfgPath, "--resume", ckpt, "--out", resumed, "--log-format", "json")
	require.NoError(t, err)
	loaded, err = serialization.LoadFile(resumed)
	require.NoError(t, err)
	assert.Equal(t, 500, loaded.Samples.Capacity())
}

func TestRun_BadLogFormat(t *testing.T) {
	_, err := execute(t, "run", "--log-format", "xml")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

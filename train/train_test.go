package train

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/han"
	"go.uber.org/zap/zaptest"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hid_size: 50\nconditioned: true\nlr: 0.01\n"),
		0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.HiddenSize = 50
	expected.Conditioned = true
	expected.LearningRate = 0.01
	assert.Equal(t, expected, cfg)

	require.NoError(t, os.WriteFile(path, []byte(""), 0644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, os.WriteFile(path, []byte("hidden: 3\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("precision: 16\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestModelConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ModelConfig(100, 5, 3, 4).Validate())
	assert.False(t, cfg.ModelConfig(100, 5, 3, 4).Conditioned)

	cfg.Conditioned = true
	modelCfg := cfg.ModelConfig(100, 5, 3, 4)
	assert.NoError(t, modelCfg.Validate())
	assert.Equal(t, 3, modelCfg.NumSubjects)
	assert.Equal(t, cfg.EmbedSize, modelCfg.IdentitySize)
}

func TestMetrics(t *testing.T) {
	var tracker metricsTracker
	tracker.Add(2, []int{0, 1, 2, 2}, []int{0, 1, 0, 2})
	tracker.Add(1, []int{1}, []int{1})
	m := tracker.Metrics()
	assert.Equal(t, 5, m.Samples)
	assert.InDelta(t, 0.8, m.Accuracy, 1e-8)
	assert.InDelta(t, 1.5, m.CrossEntropy, 1e-8)
	assert.InDelta(t, 0.5, m.MSE, 1e-8)
	assert.InDelta(t, 0.5, m.RMSE, 1e-8)

	var empty metricsTracker
	assert.Equal(t, &Metrics{}, empty.Metrics())
}

func TestClipGradient(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v1 := anydiff.NewVar(c.MakeVector(2))
	v2 := anydiff.NewVar(c.MakeVector(1))
	grad := anydiff.Grad{
		v1: c.MakeVectorData([]float64{3, 0}),
		v2: c.MakeVectorData([]float64{4}),
	}
	clipGradient(grad, 1)
	assert.InDeltaSlice(t, []float64{0.6, 0}, grad[v1].Data(), 1e-8)
	assert.InDeltaSlice(t, []float64{0.8}, grad[v2].Data(), 1e-8)

	clipGradient(grad, 2)
	assert.InDeltaSlice(t, []float64{0.6, 0}, grad[v1].Data(), 1e-8)
}

func TestLoopRunEpoch(t *testing.T) {
	cfg := testLoopConfig()
	loop := NewLoop(testSnapshot(t, cfg), cfg, zaptest.NewLogger(t).Sugar())
	samples := testSamples(12)

	before, err := loop.RunEpoch(context.Background(), samples, false)
	require.NoError(t, err)
	assert.Equal(t, len(samples), before.Samples)
	assert.False(t, math.IsNaN(before.CrossEntropy))

	for i := 0; i < 30; i++ {
		m, err := loop.RunEpoch(context.Background(), samples, true)
		require.NoError(t, err)
		assert.Equal(t, len(samples), m.Samples)
	}

	after, err := loop.RunEpoch(context.Background(), samples, false)
	require.NoError(t, err)
	assert.Less(t, after.CrossEntropy, before.CrossEntropy)
}

func TestLoopErrors(t *testing.T) {
	cfg := testLoopConfig()
	loop := NewLoop(testSnapshot(t, cfg), cfg, zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loop.RunEpoch(ctx, testSamples(6), false)
	assert.Error(t, err)

	bad := testSamples(20)
	bad[13].Sentences = nil
	_, err = loop.RunEpoch(context.Background(), bad, false)
	assert.Error(t, err)
}

func TestLoopRun(t *testing.T) {
	cfg := testLoopConfig()
	cfg.Epochs = 2
	cfg.Snapshot = true
	snap := testSnapshot(t, cfg)
	loop := NewLoop(snap, cfg, zaptest.NewLogger(t).Sugar())

	path := filepath.Join(t.TempDir(), "model")
	samples := testSamples(8)
	require.NoError(t, loop.Run(context.Background(), samples, samples[:3], nil, path))

	for _, p := range []string{path, path + "_snapshot"} {
		loaded, err := han.LoadSnapshot(p)
		require.NoError(t, err)
		assert.Equal(t, snap.Classes, loaded.Classes)
	}
	loaded, _ := han.LoadSnapshot(path)
	assert.Equal(t, snap.Classifier.ParameterValues(), loaded.Classifier.ParameterValues())
}

func testLoopConfig() *Config {
	cfg := DefaultConfig()
	cfg.EmbedSize = 4
	cfg.HiddenSize = 3
	cfg.BatchSize = 4
	cfg.Dropout = 0
	cfg.LearningRate = 0.01
	cfg.Conditioned = true
	cfg.Workers = 2
	cfg.LogEvery = 1
	cfg.Precision = 64
	return cfg
}

func testSnapshot(t *testing.T, cfg *Config) *han.Snapshot {
	model, err := han.NewClassifier(cfg.Creator(), cfg.ModelConfig(10, 2, 2, 2))
	require.NoError(t, err)
	return &han.Snapshot{
		Classifier: model,
		Words:      []string{"_pad_", "_unk_", "a", "b", "c", "d", "e", "f", "g", "h"},
		Subjects:   []string{"u1", "u2"},
		Objects:    []string{"i1", "i2"},
		Classes:    []string{"1", "5"},
	}
}

// testSamples creates documents whose label depends on
// whether they use low or high word IDs.
func testSamples(n int) []*han.Sample {
	gen := rand.New(rand.NewSource(1))
	res := make([]*han.Sample, n)
	for i := range res {
		label := i % 2
		s := &han.Sample{Subject: gen.Intn(2), Object: gen.Intn(2), Label: label}
		for j := 0; j < gen.Intn(3)+1; j++ {
			sent := make([]int, gen.Intn(4)+1)
			for k := range sent {
				sent[k] = 2 + label*4 + gen.Intn(4)
			}
			s.Sentences = append(s.Sentences, sent)
		}
		res[i] = s
	}
	return res
}

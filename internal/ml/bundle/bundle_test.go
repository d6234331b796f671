package bundle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careverify/clinic-trust-engine/internal/ml/model"
)

func fittedBundle(t *testing.T) *Bundle {
	t.Helper()

	X := [][]float64{{0, 1}, {0.2, 0.9}, {5, 5}, {5.1, 4.8}, {0.1, 1.1}, {4.9, 5.2}}
	y := []int{0, 0, 1, 1, 0, 1}

	p := model.NewPipeline(model.NewLogisticRegression())
	require.NoError(t, p.Fit(X, y))

	return &Bundle{
		Version:         "2.0",
		Algorithm:       model.KindLogisticRegression,
		TrainedAt:       time.Now().UTC(),
		FeatureColumns:  []string{"a", "b"},
		ClassNames:      []string{"LOW", "HIGH"},
		Pipeline:        p,
		TrainingSamples: len(X),
	}
}

func TestBundle_SaveLoadRoundTrip(t *testing.T) {
	b := fittedBundle(t)
	path := filepath.Join(t.TempDir(), "risk_model.json")

	require.NoError(t, Save(b, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, b.Version, loaded.Version)
	assert.Equal(t, b.Algorithm, loaded.Algorithm)
	assert.Equal(t, b.FeatureColumns, loaded.FeatureColumns)
	assert.Equal(t, b.ClassNames, loaded.ClassNames)

	// The reloaded pipeline predicts identically.
	for _, x := range [][]float64{{0, 1}, {5, 5}, {2.5, 3}} {
		want, err := b.Pipeline.PredictProba(x)
		require.NoError(t, err)
		got, err := loaded.Pipeline.PredictProba(x)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-12)
	}
}

func TestBundle_Validate(t *testing.T) {
	b := fittedBundle(t)
	require.NoError(t, b.Validate())

	broken := *b
	broken.Version = ""
	assert.Error(t, broken.Validate())

	broken = *b
	broken.FeatureColumns = []string{"a", "b", "c"}
	assert.Error(t, broken.Validate(), "scaler/column mismatch must not load")

	broken = *b
	broken.ClassNames = []string{"LOW"}
	assert.Error(t, broken.Validate())

	broken = *b
	broken.Pipeline = nil
	assert.Error(t, broken.Validate())
}

func TestLoad_RejectsCorruptArtifacts(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	garbled := filepath.Join(dir, "garbled.json")
	require.NoError(t, os.WriteFile(garbled, []byte("{not json"), 0o644))
	_, err = Load(garbled)
	assert.Error(t, err)

	// Declared algorithm without its parameters.
	mismatched := filepath.Join(dir, "mismatched.json")
	require.NoError(t, os.WriteFile(mismatched, []byte(`{"version":"1","algorithm":"random_forest","feature_columns":["a"],"class_names":["x","y"],"scaler":{"mean":[0],"std":[1]}}`), 0o644))
	_, err = Load(mismatched)
	assert.Error(t, err)
}

func TestSave_RefusesInvalidBundle(t *testing.T) {
	b := fittedBundle(t)
	b.ClassNames = []string{"ONLY_ONE"}
	err := Save(b, filepath.Join(t.TempDir(), "bad.json"))
	assert.Error(t, err)
}

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore()

	_, ok := s.Current()
	assert.False(t, ok)

	b := fittedBundle(t)
	s.Set(b)
	got, ok := s.Current()
	require.True(t, ok)
	assert.Same(t, b, got)

	// A failed reload leaves the active bundle untouched.
	err := s.Reload(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	got, ok = s.Current()
	require.True(t, ok)
	assert.Same(t, b, got)

	// A successful reload swaps the whole reference.
	path := filepath.Join(t.TempDir(), "next.json")
	next := fittedBundle(t)
	next.Version = "2.1"
	require.NoError(t, Save(next, path))
	require.NoError(t, s.Reload(path))
	got, ok = s.Current()
	require.True(t, ok)
	assert.Equal(t, "2.1", got.Version)
}

package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(filepath.Join(t.TempDir(), "config.json"))
}

func TestGenerationConfigSetAndValues(t *testing.T) {
	g := &GenerationConfig{}

	require.NoError(t, g.Set("temperature", "1.5"))
	require.NoError(t, g.Set("top_k", "40"))

	values := g.Values()
	require.Equal(t, 1.5, values["temperature"])
	require.Equal(t, 40, values["top_k"])
	require.NotContains(t, values, "top_p")
}

func TestGenerationConfigRejectsUnknownKey(t *testing.T) {
	g := &GenerationConfig{}
	err := g.Set("bogus", "1")
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestGenerationConfigRejectsBadType(t *testing.T) {
	g := &GenerationConfig{}

	err := g.Set("temperature", "warm")
	require.ErrorIs(t, err, ErrInvalidType)

	// Integer keys reject fractional input.
	err = g.Set("top_k", "1.5")
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestGenerationConfigEnforcesBounds(t *testing.T) {
	g := &GenerationConfig{}

	err := g.Set("temperature", "3.0")
	require.ErrorIs(t, err, ErrOutOfRange)
	err = g.Set("temperature", "-0.1")
	require.ErrorIs(t, err, ErrOutOfRange)

	// Inclusive bounds.
	require.NoError(t, g.Set("temperature", "2.0"))
	require.NoError(t, g.Set("temperature", "0"))
	require.NoError(t, g.Set("top_k", "1"))
	require.NoError(t, g.Set("top_k", "100"))
	err = g.Set("top_k", "101")
	require.ErrorIs(t, err, ErrOutOfRange)
	require.NoError(t, g.Set("presence_penalty", "-2.0"))
	err = g.Set("presence_penalty", "-2.1")
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestGenerationConfigReset(t *testing.T) {
	g := &GenerationConfig{}
	require.NoError(t, g.Set("temperature", "1.0"))
	require.NoError(t, g.Set("top_p", "0.9"))

	require.NoError(t, g.Reset("temperature"))
	require.Nil(t, g.Temperature)
	require.NotNil(t, g.TopP)
	require.False(t, g.IsEmpty())

	require.NoError(t, g.Reset("top_p"))
	require.True(t, g.IsEmpty())

	require.ErrorIs(t, g.Reset("bogus"), ErrUnknownKey)
}

func TestServiceModelDefault(t *testing.T) {
	svc := newTestService(t)

	model, err := svc.Model(42, "default-model")
	require.NoError(t, err)
	require.Equal(t, "default-model", model)

	require.NoError(t, svc.SetModel(42, "model-b"))
	model, err = svc.Model(42, "default-model")
	require.NoError(t, err)
	require.Equal(t, "model-b", model)

	// Other conversations are unaffected.
	model, err = svc.Model(43, "default-model")
	require.NoError(t, err)
	require.Equal(t, "default-model", model)
}

func TestServiceGenerationValueRoundTrip(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SetGenerationValue(42, "temperature", "1.5"))

	config, err := svc.GenerationConfig(42)
	require.NoError(t, err)
	require.Equal(t, 1.5, config.Values()["temperature"])
}

func TestServiceGenerationValueValidation(t *testing.T) {
	svc := newTestService(t)

	require.ErrorIs(t, svc.SetGenerationValue(42, "temperature", "3.0"), ErrOutOfRange)
	require.ErrorIs(t, svc.SetGenerationValue(42, "bogus", "1"), ErrUnknownKey)
	require.ErrorIs(t, svc.SetGenerationValue(42, "top_k", "many"), ErrInvalidType)

	// Failed validation persists nothing.
	config, err := svc.GenerationConfig(42)
	require.NoError(t, err)
	require.True(t, config.IsEmpty())
}

func TestServiceResetPrunesEmptyConfig(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SetGenerationValue(42, "temperature", "1.0"))
	require.NoError(t, svc.ResetGeneration(42, "temperature"))

	config, err := svc.GenerationConfig(42)
	require.NoError(t, err)
	require.True(t, config.IsEmpty())

	data, err := os.ReadFile(svc.path)
	require.NoError(t, err)
	raw := map[string]map[string]map[string]any{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.NotContains(t, raw["conversations"]["42"], "generation_config")
}

func TestServiceResetAll(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SetGenerationValue(42, "temperature", "1.0"))
	require.NoError(t, svc.SetGenerationValue(42, "top_p", "0.5"))
	require.NoError(t, svc.ResetGeneration(42, ""))

	config, err := svc.GenerationConfig(42)
	require.NoError(t, err)
	require.True(t, config.IsEmpty())

	// Resetting an unconfigured conversation is a no-op.
	require.NoError(t, svc.ResetGeneration(99, ""))
}

func TestServiceKeepsModelAcrossGenerationChanges(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SetModel(42, "model-a"))
	require.NoError(t, svc.SetGenerationValue(42, "top_p", "0.8"))
	require.NoError(t, svc.ResetGeneration(42, ""))

	model, err := svc.Model(42, "fallback")
	require.NoError(t, err)
	require.Equal(t, "model-a", model)
}

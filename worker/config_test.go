package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvertSingleOptionNestsByDot(t *testing.T) {
	patch := convertSingleOption("phantom.address", "example.com")
	assert.Equal(t, ConfigPatch{"phantom": ConfigPatch{"address": "example.com"}}, patch)
}

func TestConvertSingleOptionFlatKey(t *testing.T) {
	patch := convertSingleOption("test_id", "abc")
	assert.Equal(t, ConfigPatch{"test_id": "abc"}, patch)
}

func TestParseOptionsRejectsMissingEquals(t *testing.T) {
	_, err := parseOptions([]string{"no-equals-sign"})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestParseConfigPatchesDecodesYAML(t *testing.T) {
	patches, err := parseConfigPatches([]string{"phantom:\n  rps: 100"})
	require.NoError(t, err)
	require.Len(t, patches, 1)
	assert.Equal(t, 100, patches[0]["phantom"].(map[interface{}]interface{})["rps"])
}

func TestParseConfigPatchesRejectsNonMapping(t *testing.T) {
	_, err := parseConfigPatches([]string{"- a\n- b"})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestCombineConfigsOrdersConfigsThenOptionsThenPatches(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "load.yaml", "phantom:\n  rps: 50\n")

	combined, err := CombineConfigs(
		[]string{cfgPath},
		[]string{"phantom.rps=75"},
		[]string{"phantom:\n  rps: 90"},
	)
	require.NoError(t, err)
	require.Len(t, combined, 3)
	assert.Equal(t, 50, combined[0]["phantom"].(map[interface{}]interface{})["rps"])
	assert.Equal(t, ConfigPatch{"phantom": ConfigPatch{"rps": "75"}}, combined[1])
	assert.Equal(t, 90, combined[2]["phantom"].(map[interface{}]interface{})["rps"])
}

func TestCombineConfigsDefaultsToLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultConfigFile, "test_id: fallback\n")

	restore, err := Chdir(dir)
	require.NoError(t, err)
	defer restore()

	combined, err := CombineConfigs(nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "fallback", combined[0]["test_id"])
}

func TestCombineConfigsMissingFileIsConfigInvalid(t *testing.T) {
	_, err := CombineConfigs([]string{"/nonexistent/load.yaml"}, nil, nil)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

package worker

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultConfigFile is used when no positional config paths are given
// (original_source TankWorker.DEFAULT_CONFIG).
const DefaultConfigFile = "load.yaml"

// ConfigPatch is one decoded config document or override, ready to be
// merged by the (out-of-scope) config layer. TankWorker only produces
// these in precedence order; merging them into a single effective config
// is, per spec.md §1, an external collaborator's job.
type ConfigPatch map[string]interface{}

// CombineConfigs mirrors original_source TankWorker._combine_configs: load
// every positional config file (or DefaultConfigFile if none given), then
// append key=value CLI overrides, then append YAML config-patch strings —
// in that precedence order.
func CombineConfigs(configPaths, options, patches []string) ([]ConfigPatch, error) {
	if len(configPaths) == 0 {
		configPaths = []string{DefaultConfigFile}
	}
	var combined []ConfigPatch
	for _, path := range configPaths {
		cfg, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		combined = append(combined, cfg)
	}
	optPatches, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	combined = append(combined, optPatches...)

	patchDocs, err := parseConfigPatches(patches)
	if err != nil {
		return nil, err
	}
	combined = append(combined, patchDocs...)
	return combined, nil
}

func loadConfigFile(path string) (ConfigPatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfigInvalid, path, err)
	}
	var cfg ConfigPatch
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s should be a yaml mapping: %v", ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

// parseOptions turns a list of "section.option=value" CLI overrides into
// nested-mapping patches (original_source's convert_single_option).
func parseOptions(options []string) ([]ConfigPatch, error) {
	patches := make([]ConfigPatch, 0, len(options))
	for _, opt := range options {
		key, value, ok := strings.Cut(opt, "=")
		if !ok {
			return nil, fmt.Errorf("%w: option %q must be key=value", ErrConfigInvalid, opt)
		}
		patches = append(patches, convertSingleOption(strings.TrimSpace(key), strings.TrimSpace(value)))
	}
	return patches, nil
}

func convertSingleOption(key, value string) ConfigPatch {
	parts := strings.Split(key, ".")
	leaf := ConfigPatch{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		leaf = ConfigPatch{parts[i]: leaf}
	}
	return leaf
}

func parseConfigPatches(patches []string) ([]ConfigPatch, error) {
	out := make([]ConfigPatch, 0, len(patches))
	for _, p := range patches {
		var patch ConfigPatch
		if err := yaml.Unmarshal([]byte(p), &patch); err != nil {
			return nil, fmt.Errorf("%w: config patch %q: %v", ErrConfigInvalid, p, err)
		}
		if patch == nil {
			return nil, fmt.Errorf("%w: config patch %q should be a mapping", ErrConfigInvalid, p)
		}
		out = append(out, patch)
	}
	return out, nil
}

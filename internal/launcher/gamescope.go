package launcher

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// Recognized gamescope 3.14.2+ options, keyed by the value type the
// compositor expects for each flag.
var (
	gamescopeNumbers = map[string]struct{}{
		"output-width":         {},
		"output-height":        {},
		"nested-width":         {},
		"nested-height":        {},
		"nested-refresh":       {},
		"sharpness":            {},
		"framerate-limit":      {},
		"sdr-gamut-wideness":   {},
		"hdr-sdr-content-nits": {},
		"hdr-itm-enable":       {},
		"hdr-itm-target-nits":  {},
	}
	gamescopeStrings = map[string]struct{}{
		"filter":      {},
		"hdr-enabled": {},
	}
	gamescopeBools = map[string]struct{}{
		"immediate-flips": {},
		"adaptive-sync":   {},
		"grab":            {},
	}
)

// gamescopeWrapper validates the [plugins.gamescope] table and renders the
// compositor invocation that prefixes the built command. TOML keys use
// underscores; the flags use dashes.
func gamescopeWrapper(options map[string]any) ([]string, error) {
	flags, err := gamescopeFlags(options)
	if err != nil {
		return nil, err
	}

	bin, err := exec.LookPath("gamescope")
	if err != nil {
		return nil, fmt.Errorf("gamescope is not found in system")
	}

	command := append([]string{bin}, flags...)
	return append(command, "--"), nil
}

func gamescopeFlags(options map[string]any) ([]string, error) {
	// Deterministic flag order keeps launches reproducible.
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var flags []string
	for _, key := range keys {
		value := options[key]
		opt := strings.ReplaceAll(key, "_", "-")

		_, isNumber := gamescopeNumbers[opt]
		_, isString := gamescopeStrings[opt]
		_, isBool := gamescopeBools[opt]
		if !isNumber && !isString && !isBool {
			return nil, fmt.Errorf("unrecognized key in [plugins.gamescope]: %s", key)
		}

		switch v := value.(type) {
		case bool:
			if !isBool {
				return nil, fmt.Errorf("invalid value in [plugins.gamescope] for %s: %v", key, value)
			}
			if v {
				flags = append(flags, "--"+opt)
			}
		case string:
			if !isString {
				return nil, fmt.Errorf("invalid value in [plugins.gamescope] for %s: %v", key, value)
			}
			flags = append(flags, fmt.Sprintf("--%s=%s", opt, v))
		case int, int32, int64, float32, float64:
			if !isNumber {
				return nil, fmt.Errorf("invalid value in [plugins.gamescope] for %s: %v", key, value)
			}
			flags = append(flags, fmt.Sprintf("--%s=%v", opt, v))
		default:
			return nil, fmt.Errorf("invalid value in [plugins.gamescope] for %s: %v", key, value)
		}
	}

	return flags, nil
}

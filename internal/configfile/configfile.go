// Package configfile reads and writes the engine's flat key/value config
// files — the same line format as the original gric-cluster tool's
// config_utils.c: one option per line, blank lines and lines starting with
// '#' ignored, key and value separated by whitespace, value optional for
// boolean flags. A leading dash on the key is accepted but not required, so
// "-rlim 1.0" and "rlim 1.0" parse identically.
package configfile

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Strategy mirrors the maxcl_strategy enum.
type Strategy string

const (
	StrategyStop    Strategy = "stop"
	StrategyDiscard Strategy = "discard"
	StrategyMerge   Strategy = "merge"
)

// PredictParams is the pred[l,h,n] sequence-prediction setting.
type PredictParams struct {
	Enabled bool
	L, H, N int
}

// Config is the full set of options the config file format can carry,
// named after the spec's option table rather than the original C struct's
// field names.
type Config struct {
	Radius         float64
	AutoRadius     bool
	AutoRadiusK    float64
	DeltaProb      float64
	MaxClusters    int
	MaxFrames      int64
	NCPU           int
	InputPath      string
	OutputDir      string
	AverageMode    bool
	DistAll        bool
	Progress       bool
	GProb          bool
	FMatchA        float64
	FMatchB        float64
	MaxVisitors    int
	TE4            bool
	TE5            bool
	TMMixing       float64
	MaxClStrategy  Strategy
	DiscardFrac    float64
	Predict        PredictParams
	ScanDist       bool
	OutputTM       bool
	OutputAnchors  bool
	OutputCounts   bool
	OutputMembers  bool
	OutputDiscards bool
	OutputClustered bool
	OutputClusters bool
	Verbose        int
}

// Default returns the option set's documented defaults.
func Default() Config {
	return Config{
		DeltaProb:     0.01,
		MaxClusters:   1000,
		NCPU:          1,
		FMatchA:       1.0,
		FMatchB:       0.0,
		MaxVisitors:   16,
		TMMixing:      0.0,
		MaxClStrategy: StrategyStop,
		DiscardFrac:   0.1,
		OutputMembers: true,
	}
}

func stripDash(key string) string {
	return strings.TrimPrefix(key, "-")
}

func matches(key, opt string) bool {
	return stripDash(key) == stripDash(opt)
}

// ApplyOption applies one key/value pair to cfg, mirroring
// config_utils.c's apply_option. value is empty for boolean flags. Returns
// an error for options that require a value and didn't get one, for a
// value that does not parse, and for an unknown maxcl_strategy; unknown
// keys are ignored, matching the original's "Unknown option"
// behavior rather than hard-failing.
func ApplyOption(cfg *Config, key, value string) error {
	need := func(name string) (float64, error) {
		if value == "" {
			return 0, fmt.Errorf("configfile: option %q requires a value", name)
		}
		return strconv.ParseFloat(value, 64)
	}
	needInt := func(name string) (int, error) {
		if value == "" {
			return 0, fmt.Errorf("configfile: option %q requires a value", name)
		}
		return strconv.Atoi(value)
	}

	switch {
	case matches(key, "dprob"):
		v, err := need("dprob")
		if err != nil {
			return err
		}
		cfg.DeltaProb = v
	case matches(key, "maxcl"):
		v, err := needInt("maxcl")
		if err != nil {
			return err
		}
		cfg.MaxClusters = v
	case matches(key, "ncpu"):
		v, err := needInt("ncpu")
		if err != nil {
			return err
		}
		cfg.NCPU = v
	case matches(key, "maxim"):
		if value == "" {
			return fmt.Errorf("configfile: option %q requires a value", "maxim")
		}
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.MaxFrames = v
	case matches(key, "avg"):
		cfg.AverageMode = true
	case matches(key, "distall"):
		cfg.DistAll = true
	case matches(key, "outdir"):
		if value == "" {
			return fmt.Errorf("configfile: option %q requires a value", "outdir")
		}
		cfg.OutputDir = value
	case matches(key, "progress"):
		cfg.Progress = true
	case matches(key, "gprob"):
		cfg.GProb = true
	case matches(key, "verbose"):
		cfg.Verbose = 1
	case matches(key, "veryverbose"):
		cfg.Verbose = 2
	case matches(key, "fmatcha"):
		v, err := need("fmatcha")
		if err != nil {
			return err
		}
		cfg.FMatchA = v
	case matches(key, "fmatchb"):
		v, err := need("fmatchb")
		if err != nil {
			return err
		}
		cfg.FMatchB = v
	case matches(key, "maxvis"):
		v, err := needInt("maxvis")
		if err != nil {
			return err
		}
		cfg.MaxVisitors = v
	case matches(key, "te4"):
		cfg.TE4 = true
	case matches(key, "te5"):
		cfg.TE5 = true
	case matches(key, "tm"):
		v, err := need("tm")
		if err != nil {
			return err
		}
		cfg.TMMixing = v
	case matches(key, "maxcl_strategy"):
		switch value {
		case "stop":
			cfg.MaxClStrategy = StrategyStop
		case "discard":
			cfg.MaxClStrategy = StrategyDiscard
		case "merge":
			cfg.MaxClStrategy = StrategyMerge
		default:
			return fmt.Errorf("configfile: unknown maxcl_strategy %q", value)
		}
	case matches(key, "discard_frac"):
		v, err := need("discard_frac")
		if err != nil {
			return err
		}
		cfg.DiscardFrac = v
	case matches(key, "tm_out"):
		cfg.OutputTM = true
	case matches(key, "anchors"):
		cfg.OutputAnchors = true
	case matches(key, "counts"):
		cfg.OutputCounts = true
	case matches(key, "membership"):
		cfg.OutputMembers = true
	case matches(key, "no_membership"):
		cfg.OutputMembers = false
	case matches(key, "discarded"):
		cfg.OutputDiscards = true
	case matches(key, "clustered"):
		cfg.OutputClustered = true
	case matches(key, "clusters"):
		cfg.OutputClusters = true
	case matches(key, "scandist"):
		cfg.ScanDist = true
	case matches(key, "rlim"):
		if value == "" {
			return fmt.Errorf("configfile: option %q requires a value", "rlim")
		}
		if strings.HasPrefix(value, "a") {
			k, err := strconv.ParseFloat(value[1:], 64)
			if err != nil {
				return fmt.Errorf("configfile: parsing auto-rlim factor %q: %w", value, err)
			}
			cfg.AutoRadius = true
			cfg.AutoRadiusK = k
		} else {
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return err
			}
			cfg.Radius = v
		}
	case matches(key, "input"), matches(key, "in"):
		if value == "" {
			return fmt.Errorf("configfile: option %q requires a value", "input")
		}
		cfg.InputPath = value
	case strings.HasPrefix(stripDash(key), "pred"):
		cfg.Predict.Enabled = true
		if l, h, n, ok := parsePredictBrackets(key); ok {
			cfg.Predict.L, cfg.Predict.H, cfg.Predict.N = l, h, n
		}
	default:
		// Unknown option: ignored, matching apply_option's -1 return with no
		// side effect other than the original's stderr warning.
	}
	return nil
}

// parsePredictBrackets extracts l,h,n from a key of the form
// "pred[3,50,1]" or "-pred[3,50,1]".
func parsePredictBrackets(key string) (l, h, n int, ok bool) {
	open := strings.IndexByte(key, '[')
	close := strings.IndexByte(key, ']')
	if open < 0 || close < 0 || close < open {
		return 0, 0, 0, false
	}
	parts := strings.Split(key[open+1:close], ",")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}

// Load reads a config file into cfg, applying options line by line in file
// order so later lines override earlier ones. cfg should start from
// Default() so options the file omits keep their documented defaults.
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("configfile: opening %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := strings.Fields(line)[0]
		value := strings.TrimSpace(strings.TrimPrefix(line, key))
		if err := ApplyOption(cfg, key, value); err != nil {
			return fmt.Errorf("configfile: %q: %w", path, err)
		}
	}
	return scanner.Err()
}

// Write renders cfg in the same format write_config_file produces: rlim
// always present (or a comment noting auto mode), every numeric option on
// its own line, boolean flags emitted only when set (and no_membership
// emitted when membership output is off, matching the original's
// unconditional pairing).
func Write(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("configfile: creating %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# anchorcluster configuration file")
	fmt.Fprintf(w, "rlim %f\n", cfg.Radius)
	if cfg.AutoRadius {
		fmt.Fprintf(w, "# auto_rlim enabled (factor %f)\n", cfg.AutoRadiusK)
	}
	if cfg.InputPath != "" {
		fmt.Fprintf(w, "input %s\n", cfg.InputPath)
	}
	if cfg.OutputDir != "" {
		fmt.Fprintf(w, "outdir %s\n", cfg.OutputDir)
	}
	fmt.Fprintf(w, "dprob %f\n", cfg.DeltaProb)
	fmt.Fprintf(w, "maxcl %d\n", cfg.MaxClusters)
	fmt.Fprintf(w, "maxim %d\n", cfg.MaxFrames)
	fmt.Fprintf(w, "ncpu %d\n", cfg.NCPU)

	writeFlag := func(set bool, name string) {
		if set {
			fmt.Fprintln(w, name)
		}
	}
	writeFlag(cfg.AverageMode, "avg")
	writeFlag(cfg.DistAll, "distall")
	writeFlag(cfg.Progress, "progress")
	writeFlag(cfg.GProb, "gprob")
	if cfg.Verbose == 1 {
		fmt.Fprintln(w, "verbose")
	} else if cfg.Verbose == 2 {
		fmt.Fprintln(w, "veryverbose")
	}

	fmt.Fprintf(w, "fmatcha %f\n", cfg.FMatchA)
	fmt.Fprintf(w, "fmatchb %f\n", cfg.FMatchB)
	fmt.Fprintf(w, "maxvis %d\n", cfg.MaxVisitors)

	writeFlag(cfg.TE4, "te4")
	writeFlag(cfg.TE5, "te5")

	fmt.Fprintf(w, "tm %f\n", cfg.TMMixing)
	fmt.Fprintf(w, "maxcl_strategy %s\n", cfg.MaxClStrategy)
	fmt.Fprintf(w, "discard_frac %f\n", cfg.DiscardFrac)

	writeFlag(cfg.OutputTM, "tm_out")
	writeFlag(cfg.OutputAnchors, "anchors")
	writeFlag(cfg.OutputCounts, "counts")
	writeFlag(cfg.OutputMembers, "membership")
	writeFlag(!cfg.OutputMembers, "no_membership")
	writeFlag(cfg.OutputDiscards, "discarded")
	writeFlag(cfg.OutputClustered, "clustered")
	writeFlag(cfg.OutputClusters, "clusters")

	if cfg.Predict.Enabled {
		fmt.Fprintf(w, "# prediction mode enabled: pred[%d,%d,%d]\n", cfg.Predict.L, cfg.Predict.H, cfg.Predict.N)
		fmt.Fprintf(w, "-pred[%d,%d,%d]\n", cfg.Predict.L, cfg.Predict.H, cfg.Predict.N)
	}

	writeFlag(cfg.ScanDist, "scandist")

	return w.Flush()
}

// ToParams renders cfg as the PARAM_* string map telemetry.RunLog expects,
// so a run's config and its log always agree on option names.
func ToParams(cfg Config) map[string]string {
	params := map[string]string{
		"rlim":           strconv.FormatFloat(cfg.Radius, 'f', -1, 64),
		"dprob":          strconv.FormatFloat(cfg.DeltaProb, 'f', -1, 64),
		"maxcl":          strconv.Itoa(cfg.MaxClusters),
		"maxim":          strconv.FormatInt(cfg.MaxFrames, 10),
		"ncpu":           strconv.Itoa(cfg.NCPU),
		"fmatcha":        strconv.FormatFloat(cfg.FMatchA, 'f', -1, 64),
		"fmatchb":        strconv.FormatFloat(cfg.FMatchB, 'f', -1, 64),
		"maxvis":         strconv.Itoa(cfg.MaxVisitors),
		"tm":             strconv.FormatFloat(cfg.TMMixing, 'f', -1, 64),
		"maxcl_strategy": string(cfg.MaxClStrategy),
		"discard_frac":   strconv.FormatFloat(cfg.DiscardFrac, 'f', -1, 64),
		"te4":            strconv.FormatBool(cfg.TE4),
		"te5":            strconv.FormatBool(cfg.TE5),
		"gprob":          strconv.FormatBool(cfg.GProb),
	}
	if cfg.AutoRadius {
		params["rlim"] = fmt.Sprintf("a%v", cfg.AutoRadiusK)
	}
	if cfg.Predict.Enabled {
		params["pred"] = fmt.Sprintf("[%d,%d,%d]", cfg.Predict.L, cfg.Predict.H, cfg.Predict.N)
	}
	return params
}

// SortedParamKeys returns params' keys sorted, for callers that want a
// stable iteration order without re-sorting themselves.
func SortedParamKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

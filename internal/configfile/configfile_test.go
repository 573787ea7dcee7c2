package configfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptionAcceptsDashOrBareKey(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyOption(&cfg, "-dprob", "0.25"))
	assert.Equal(t, 0.25, cfg.DeltaProb)

	cfg = Default()
	require.NoError(t, ApplyOption(&cfg, "dprob", "0.5"))
	assert.Equal(t, 0.5, cfg.DeltaProb)
}

func TestApplyOptionRlimAutoSyntax(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyOption(&cfg, "-rlim", "a2.5"))
	assert.True(t, cfg.AutoRadius)
	assert.Equal(t, 2.5, cfg.AutoRadiusK)

	cfg = Default()
	require.NoError(t, ApplyOption(&cfg, "-rlim", "1.75"))
	assert.False(t, cfg.AutoRadius)
	assert.Equal(t, 1.75, cfg.Radius)
}

func TestApplyOptionBooleanFlagsNeedNoValue(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyOption(&cfg, "-te4", ""))
	require.NoError(t, ApplyOption(&cfg, "-te5", ""))
	require.NoError(t, ApplyOption(&cfg, "-gprob", ""))
	assert.True(t, cfg.TE4)
	assert.True(t, cfg.TE5)
	assert.True(t, cfg.GProb)
}

func TestApplyOptionMissingValueErrors(t *testing.T) {
	cfg := Default()
	err := ApplyOption(&cfg, "-dprob", "")
	assert.Error(t, err)
}

func TestApplyOptionPredictBrackets(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyOption(&cfg, "-pred[3,50,1]", ""))
	assert.True(t, cfg.Predict.Enabled)
	assert.Equal(t, 3, cfg.Predict.L)
	assert.Equal(t, 50, cfg.Predict.H)
	assert.Equal(t, 1, cfg.Predict.N)
}

func TestApplyOptionMaxclStrategy(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyOption(&cfg, "-maxcl_strategy", "merge"))
	assert.Equal(t, StrategyMerge, cfg.MaxClStrategy)

	err := ApplyOption(&cfg, "-maxcl_strategy", "bogus")
	assert.Error(t, err)
}

func TestApplyOptionUnknownKeyIgnored(t *testing.T) {
	cfg := Default()
	err := ApplyOption(&cfg, "-totally-unknown-flag", "whatever")
	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadSkipsCommentsAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	contents := "# a comment\n\n-rlim 1.0\ndprob 0.3\n\n# trailing comment\nte4\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg := Default()
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, 1.0, cfg.Radius)
	assert.Equal(t, 0.3, cfg.DeltaProb)
	assert.True(t, cfg.TE4)
}

func TestWriteLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Radius = 2.5
	cfg.DeltaProb = 0.02
	cfg.MaxClusters = 500
	cfg.MaxFrames = 100000
	cfg.NCPU = 4
	cfg.GProb = true
	cfg.TE4 = true
	cfg.TE5 = true
	cfg.MaxClStrategy = StrategyDiscard
	cfg.DiscardFrac = 0.2
	cfg.Predict = PredictParams{Enabled: true, L: 3, H: 50, N: 1}
	cfg.OutputMembers = false

	path := filepath.Join(t.TempDir(), "round.cfg")
	require.NoError(t, Write(path, cfg))

	loaded := Default()
	require.NoError(t, Load(path, &loaded))

	assert.Equal(t, cfg.Radius, loaded.Radius)
	assert.Equal(t, cfg.DeltaProb, loaded.DeltaProb)
	assert.Equal(t, cfg.MaxClusters, loaded.MaxClusters)
	assert.Equal(t, cfg.MaxFrames, loaded.MaxFrames)
	assert.Equal(t, cfg.NCPU, loaded.NCPU)
	assert.True(t, loaded.GProb)
	assert.True(t, loaded.TE4)
	assert.True(t, loaded.TE5)
	assert.Equal(t, StrategyDiscard, loaded.MaxClStrategy)
	assert.Equal(t, cfg.DiscardFrac, loaded.DiscardFrac)
	assert.Equal(t, cfg.Predict, loaded.Predict)
	assert.False(t, loaded.OutputMembers)
}

func TestWriteAutoRadiusEmitsComment(t *testing.T) {
	cfg := Default()
	cfg.AutoRadius = true
	cfg.AutoRadiusK = 1.5

	path := filepath.Join(t.TempDir(), "auto.cfg")
	require.NoError(t, Write(path, cfg))

	loaded := Default()
	require.NoError(t, Load(path, &loaded))
	// Auto mode is recorded only as an explanatory comment in the file
	// (matching write_config_file), so round-tripping through Load alone
	// does not recover AutoRadius — an engine must persist the original
	// -rlim aK flag itself to preserve auto mode across restarts.
	assert.False(t, loaded.AutoRadius)
}

func TestToParamsRendersAutoRadius(t *testing.T) {
	cfg := Default()
	cfg.AutoRadius = true
	cfg.AutoRadiusK = 2
	params := ToParams(cfg)
	assert.Equal(t, "a2", params["rlim"])
}

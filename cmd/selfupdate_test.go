package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSelfUpdate_DevelopmentVersions(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	for _, v := range []string{"", "dev"} {
		t.Run("version "+v, func(t *testing.T) {
			rootCmd.Version = v
			err := runSelfUpdate(nil, nil)
			assert.EqualError(t, err, "cannot self-update a development version")
		})
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	selfUpdateCmd := newSelfUpdateCmd()
	assert.Equal(t, "self-update", selfUpdateCmd.Use)
	assert.NotNil(t, selfUpdateCmd.RunE)

	var buf bytes.Buffer
	selfUpdateCmd.SetOut(&buf)
	selfUpdateCmd.SetErr(&buf)
	selfUpdateCmd.SetArgs([]string{"--help"})

	require.NoError(t, selfUpdateCmd.Execute())
	assert.Contains(t, buf.String(), "Checks for the latest release of strata")
}

func TestGithubRepoSlug(t *testing.T) {
	assert.Equal(t, "strata-dev/strata", githubRepoSlug)
}

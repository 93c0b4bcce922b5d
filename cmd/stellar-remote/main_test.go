package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarques81/stellar-remote/internal/config"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Stellar Remote")
}

func TestLoadSettingsAppliesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":4000\"\nhistory_size: 7\n"), 0o644))

	settings, err := loadSettings(&flags{config: path, port: "8080", mopidyURL: "http://music.lan:6680"})
	require.NoError(t, err)
	s := settings.Get()
	assert.Equal(t, ":8080", s.Listen)
	assert.Equal(t, "http://music.lan:6680", s.MopidyURL)
	assert.Equal(t, 7, s.HistorySize)
	assert.Equal(t, path, settings.Path())
}

func TestLoadSettingsRejectsBadFlags(t *testing.T) {
	_, err := loadSettings(&flags{mopidyURL: "music.lan"})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

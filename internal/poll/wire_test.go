package poll

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/config"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.Default()
		cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "jobs.db")
		s, err := OpenStore(ctx, cfg)
		require.NoError(t, err)
		defer s.Close()
		rows, err := s.ListCompanies(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	tests := []struct {
		name   string
		driver string
		url    string
		errMsg string
	}{
		{"postgres without url", "postgres", "", "needs database.url"},
		{"unknown driver", "mysql", "", "unknown database driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Database.Driver = tt.driver
			cfg.Database.URL = tt.url
			_, err := OpenStore(ctx, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOptionalWiringOff(t *testing.T) {
	cfg := config.Default()

	d, err := NewDigest(cfg)
	require.NoError(t, err)
	assert.Nil(t, d)

	mb, err := NewMailbox(cfg)
	require.NoError(t, err)
	assert.Nil(t, mb)
}

func TestNewRules(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		rules, err := NewRules(config.Default())
		require.NoError(t, err)
		assert.Same(t, classify.Default(), rules)
	})

	t.Run("rules file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Pipeline.RulesFile = filepath.Join(t.TempDir(), "rules.yml")
		require.NoError(t, os.WriteFile(cfg.Pipeline.RulesFile, []byte("senior_block: '\\b(senior|distinguished)\\b'\n"), 0o644))

		rules, err := NewRules(cfg)
		require.NoError(t, err)
		assert.True(t, rules.HasSeniorMarker("Distinguished Engineer"))
		assert.False(t, rules.HasSeniorMarker("Staff Engineer"))
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Pipeline.RulesFile = filepath.Join(t.TempDir(), "nope.yml")
		_, err := NewRules(cfg)
		assert.Error(t, err)
	})

	t.Run("debug logs decisions", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		t.Cleanup(func() { log.SetOutput(prev) })

		cfg := config.Default()
		cfg.Pipeline.DebugRules = true
		rules, err := NewRules(cfg)
		require.NoError(t, err)
		assert.False(t, rules.IsJuniorTitleOrDesc("Senior Software Engineer", "", false))
		assert.Contains(t, buf.String(), "[rules] blocked by senior title")
	})
}

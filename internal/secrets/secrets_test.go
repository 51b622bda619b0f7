package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/nelson-zack/job-radar/internal/config"
)

func TestAdminTokenEnvFirst(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Set(AdminTokenAccount, "from-keyring"))

	t.Setenv(EnvAdminToken, "from-env")
	got, err := AdminToken()
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	t.Setenv(EnvAdminToken, "")
	got, err = AdminToken()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", got)
}

func TestMissingSecret(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvTelegramToken, "")

	_, err := TelegramToken()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIMAPPassword(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvIMAPPassword, "")

	var cfg config.Config
	cfg.Sources.Crawler.Mailbox.Username = "me@example.com"
	cfg.Sources.Crawler.Mailbox.IMAPHost = "imap.example.com"
	acct := IMAPKeyringAccount(cfg)
	assert.Equal(t, "job-radar:imap:me@example.com@imap.example.com", acct)

	_, err := IMAPPassword(acct)
	require.Error(t, err)

	require.NoError(t, Set(acct, "hunter2"))
	pw, err := IMAPPassword(acct)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	require.NoError(t, Delete(acct))
	require.NoError(t, Delete(acct))
}

func TestSetRejectsBlank(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, Set("", "x"))
	assert.Error(t, Set("acct", "  "))
}

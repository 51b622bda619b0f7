// Package secrets looks up credentials: environment first, then the OS
// keyring under the job-radar service.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/nelson-zack/job-radar/internal/config"
)

const (
	// KeyringService groups the app's secrets in the OS keychain.
	KeyringService = "job-radar"

	AdminTokenAccount    = "admin_token"
	TelegramTokenAccount = "telegram_bot_token"

	EnvAdminToken    = "RADAR_ADMIN_TOKEN"
	EnvIMAPPassword  = "RADAR_IMAP_PASSWORD"
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
)

var ErrNotFound = errors.New("secret not found")

// lookup returns the env value when set, else the keyring entry.
func lookup(env, account string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrNotFound
	}
	v, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(v) == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", account, err)
	}
	return v, nil
}

// AdminToken guards the admin endpoints. An empty result with ErrNotFound
// means admin endpoints are closed.
func AdminToken() (string, error) { return lookup(EnvAdminToken, AdminTokenAccount) }

func TelegramToken() (string, error) { return lookup(EnvTelegramToken, TelegramTokenAccount) }

// IMAPPassword returns the mailbox password for the configured account.
func IMAPPassword(account string) (string, error) {
	pw, err := lookup(EnvIMAPPassword, account)
	if errors.Is(err, ErrNotFound) {
		return "", errors.New("IMAP password not found (set it in keychain or via env)")
	}
	return pw, err
}

// Set stores a secret in the keyring.
func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// IMAPKeyringAccount names the keyring entry for the crawler mailbox.
func IMAPKeyringAccount(cfg config.Config) string {
	mb := cfg.Sources.Crawler.Mailbox
	return fmt.Sprintf("job-radar:imap:%s@%s", mb.Username, mb.IMAPHost)
}

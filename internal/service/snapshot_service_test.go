package service

import (
	"os"
	"path/filepath"
	"testing"

	"defi-snapshot-xrd/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAccountsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAccounts(t *testing.T) {
	path := writeAccountsFile(t, `
# 注释行
account_rdx1qqalpha

account_rdx1qqgamma
`)
	accounts, err := loadAccounts(path)
	require.NoError(t, err)
	assert.Equal(t, []types.Address{"account_rdx1qqalpha", "account_rdx1qqgamma"}, accounts)
}

func TestLoadAccountsInvalidAddress(t *testing.T) {
	path := writeAccountsFile(t, "account_rdx1bad\n")
	_, err := loadAccounts(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account_rdx1bad")
}

func TestLoadAccountsMissingFile(t *testing.T) {
	_, err := loadAccounts(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

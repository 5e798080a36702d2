package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"create billing tables", "create_billing_tables"},
		{"Create-Billing-Tables", "create_billing_tables"},
		{"CREATE_AUDIT_LOGS", "create_audit_logs"},
		{"add__invoice__index", "add_invoice_index"},
		{"Add Column 123", "add_column_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "add payment index", "Index payments by method")
	require.NoError(t, err)
	require.NotNil(t, mf)

	// Version is a sortable YYYYMMDDHHMMSS timestamp
	assert.Len(t, mf.Version, 14)
	assert.Equal(t, "add_payment_index", mf.Name)
	assert.True(t, strings.HasSuffix(mf.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, ".down.sql"))

	upBase := strings.TrimSuffix(filepath.Base(mf.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(mf.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "-- Migration: add_payment_index")
	assert.Contains(t, string(upContent), "Index payments by method")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "(Rollback)")
}

func TestCreateMigrationDefaultsDescription(t *testing.T) {
	tmpDir := t.TempDir()

	mf, err := CreateMigration(tmpDir, "drop unused column", "")
	require.NoError(t, err)

	content, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- Description: drop unused column")
}

func TestListMigrations(t *testing.T) {
	tmpDir := t.TempDir()

	migrations, err := ListMigrations(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, migrations)

	_, err = CreateMigration(tmpDir, "first", "")
	require.NoError(t, err)

	migrations, err = ListMigrations(tmpDir)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.True(t, strings.HasSuffix(migrations[0], "_first"))
}

func TestListMigrationsMissingDir(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0001_audit_log.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = parseVersion("0000_bootstrap.sql")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	_, err = parseVersion("audit.sql")
	assert.Error(t, err)

	_, err = parseVersion("v1_audit.sql")
	assert.Error(t, err)
}

func TestLoadMigrations_Ordered(t *testing.T) {
	ms, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].version, ms[i].version)
	}
}

package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spent/internal/core"
)

const usersJSON = `{
  "alice": {
    "password": "x",
    "onboarding": {
      "pay_type": "Annually",
      "monthly_income": "60k",
      "bills": [
        {"description": "Rent", "frequency": "monthly", "amount": "1200"},
        {"description": "Gym", "frequency": "weekly", "amount": 5},
        {"description": "", "frequency": "monthly", "amount": "abc"},
        {"description": "Other", "frequency": "monthly", "amount": true}
      ]
    },
    "recurring": [{"category": "Netflix", "frequency": "monthly", "amount": 12.99}],
    "recurring_income": [{"source": "Tutoring", "frequency": "weekly", "amount": "50"}]
  },
  "legacy": "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
  "empty": {}
}`

func writeUsers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileDirectoryLookup(t *testing.T) {
	ctx := context.Background()
	dir := NewFileDirectory(writeUsers(t, usersJSON))

	rec, found, err := dir.Lookup(ctx, "alice")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, core.PayAnnually, rec.Onboarding.Pay())
	assert.Equal(t, "60k", rec.Onboarding.Income())
	require.Len(t, rec.Onboarding.Bills, 4)
	assert.Equal(t, "1200", rec.Onboarding.Bills[0].Amount.Decimal().String())
	assert.Equal(t, "5", rec.Onboarding.Bills[1].Amount.Decimal().String())
	assert.True(t, rec.Onboarding.Bills[2].Amount.Decimal().IsZero())
	assert.Equal(t, core.MiscCategory, rec.Onboarding.Bills[2].Category())
	assert.True(t, rec.Onboarding.Bills[3].Amount.Decimal().IsZero())
	assert.Equal(t, "12.99", rec.Recurring[0].Amount.Decimal().String())
	assert.Equal(t, core.Frequency("weekly"), rec.RecurringIncome[0].Frequency)
}

func TestFileDirectoryDefaultsAndLegacy(t *testing.T) {
	ctx := context.Background()
	dir := NewFileDirectory(writeUsers(t, usersJSON))

	rec, found, err := dir.Lookup(ctx, "legacy")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, rec.Onboarding.Bills)

	rec, found, err = dir.Lookup(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, core.PayMonthly, rec.Onboarding.Pay())
	assert.Equal(t, "0", rec.Onboarding.Income())

	_, found, err = dir.Lookup(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileDirectoryMissingAndMalformed(t *testing.T) {
	ctx := context.Background()

	_, found, err := NewFileDirectory(filepath.Join(t.TempDir(), "absent.json")).Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = NewFileDirectory(writeUsers(t, "{nope")).Lookup(ctx, "alice")
	assert.Error(t, err)
}

type countingDirectory struct {
	calls int
	StaticDirectory
}

func (c *countingDirectory) Lookup(ctx context.Context, username string) (Record, bool, error) {
	c.calls++
	return c.StaticDirectory.Lookup(ctx, username)
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()
	inner := &countingDirectory{StaticDirectory: StaticDirectory{"alice": {}}}
	dir := NewCachedDirectory(inner, time.Hour)

	for i := 0; i < 3; i++ {
		_, found, err := dir.Lookup(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, found)
	}
	_, found, _ := dir.Lookup(ctx, "bob")
	assert.False(t, found)
	_, _, _ = dir.Lookup(ctx, "bob")

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, dir.CleanExpired())
}

func TestValueDecimalOutOfRangeIsZero(t *testing.T) {
	assert.True(t, Value("1e400").Decimal().IsZero())
	assert.True(t, Value("-5e12").Decimal().IsZero())
	assert.Equal(t, "42.5", Value(" 42.5 ").Decimal().String())
}

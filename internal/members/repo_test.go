package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
)

func setupMembersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	members := `
CREATE TABLE IF NOT EXISTS members (
  id TEXT PRIMARY KEY,
  member_code TEXT NOT NULL UNIQUE,
  full_name TEXT NOT NULL,
  sponsor_code TEXT,
  placement_code TEXT,
  is_admin INTEGER NOT NULL DEFAULT 0,
  refer_eligible INTEGER NOT NULL DEFAULT 0,
  eligible_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(members).Error)
	return db
}

func uniqueCode() string {
	return "M" + uuid.NewString()[:12]
}

func TestUpsertUpdatesLinkageFields(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	code := uniqueCode()
	member := &models.Member{ID: uuid.New(), MemberCode: code, FullName: "Before"}
	require.NoError(t, repo.Upsert(ctx, member))

	sponsor := uniqueCode()
	again := &models.Member{ID: uuid.New(), MemberCode: code, FullName: "After", SponsorCode: &sponsor}
	require.NoError(t, repo.Upsert(ctx, again))

	found, err := repo.FindByCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "After", found.FullName)
	require.NotNil(t, found.SponsorCode)
	assert.Equal(t, sponsor, *found.SponsorCode)

	var count int64
	require.NoError(t, db.Model(&models.Member{}).Where("member_code = ?", code).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListByCodePrefixStableOrder(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	prefix := "ZB" + uuid.NewString()[:6]
	for _, suffix := range []string{"03", "01", "02"} {
		member := &models.Member{ID: uuid.New(), MemberCode: prefix + suffix, FullName: "Pool"}
		require.NoError(t, repo.Upsert(ctx, member))
	}

	pool, err := repo.ListByCodePrefix(ctx, prefix)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, prefix+"01", pool[0].MemberCode)
	assert.Equal(t, prefix+"02", pool[1].MemberCode)
	assert.Equal(t, prefix+"03", pool[2].MemberCode)
}

func TestMarkReferEligibleOnce(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	code := uniqueCode()
	member := &models.Member{ID: uuid.New(), MemberCode: code, FullName: "Member"}
	require.NoError(t, repo.Upsert(ctx, member))

	first := time.Now().Add(-time.Hour)
	require.NoError(t, repo.MarkReferEligible(ctx, code, first))
	require.NoError(t, repo.MarkReferEligible(ctx, code, time.Now()))

	found, err := repo.FindByCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.ReferEligible)
	require.NotNil(t, found.EligibleAt)
	assert.WithinDuration(t, first, *found.EligibleAt, time.Second, "the first flip wins")
}

package repository_test

import (
	"os"
	"testing"

	"github.com/fetchwork/pricing-api/models"
	"github.com/fetchwork/pricing-api/repository"
	testingutil "github.com/fetchwork/pricing-api/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTestDB(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST not set; skipping database tests")
	}
}

func TestPricingRuleRepository(t *testing.T) {
	requireTestDB(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewPricingRuleRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		otherTenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		rules, err := fixtures.CreateStandardBoardingRules(tenant.ID)
		require.NoError(t, err)
		require.Len(t, rules, 3)

		// A rule for another tenant and a disabled rule, neither of which
		// may leak into the candidate set.
		_, err = fixtures.CreateTestRule(otherTenant.ID, models.ServiceTypeBoarding, models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 99, nil)
		require.NoError(t, err)
		disabled, err := fixtures.CreateTestRule(tenant.ID, models.ServiceTypeBoarding, models.RuleTypeWeekend, 30, models.AdjustmentTypeFlat, 5, nil)
		require.NoError(t, err)
		disabled.Enabled = new(bool)
		require.NoError(t, testDB.DB.Save(disabled).Error)

		t.Run("ListCandidates", func(t *testing.T) {
			candidates, err := repo.ListCandidates(ctx, tenant.ID, models.ServiceTypeBoarding)
			require.NoError(t, err)
			require.Len(t, candidates, 3)

			// Ascending priority, tenant-scoped, enabled only.
			assert.Equal(t, models.RuleTypeBase, candidates[0].RuleType)
			assert.Equal(t, models.RuleTypeWeekend, candidates[1].RuleType)
			assert.Equal(t, models.RuleTypeMultiDog, candidates[2].RuleType)
			for _, rule := range candidates {
				assert.Equal(t, tenant.ID, rule.TenantID)
				assert.True(t, rule.IsEnabled())
			}
		})

		t.Run("ListCandidatesEmptyForOtherService", func(t *testing.T) {
			candidates, err := repo.ListCandidates(ctx, tenant.ID, models.ServiceTypeWalk)
			require.NoError(t, err)
			assert.Empty(t, candidates)
		})

		t.Run("ListByTenantIncludesDisabled", func(t *testing.T) {
			all, err := repo.ListByTenant(ctx, tenant.ID, models.ServiceTypeBoarding)
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})

		t.Run("ListByTenantAllServiceTypes", func(t *testing.T) {
			_, err := fixtures.CreateTestRule(tenant.ID, models.ServiceTypeWalk, models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 20, nil)
			require.NoError(t, err)

			all, err := repo.ListByTenant(ctx, tenant.ID, "")
			require.NoError(t, err)
			assert.Len(t, all, 5)
		})

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, rules[0].UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, rules[0].ID, found.ID)
		})

		t.Run("ByUUIDNotFound", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("Update", func(t *testing.T) {
			rule := rules[2]
			rule.AdjustmentValue = 18
			require.NoError(t, repo.Update(ctx, rule))

			found, err := repo.ByUUID(ctx, rule.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, float64(18), found.AdjustmentValue)
		})

		t.Run("Delete", func(t *testing.T) {
			victim, err := fixtures.CreateTestRule(tenant.ID, models.ServiceTypeDaycare, models.RuleTypeBase, 0, models.AdjustmentTypeFlat, 30, nil)
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, victim.ID))

			found, err := repo.ByUUID(ctx, victim.UUID)
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("CountAndExists", func(t *testing.T) {
			boarding := models.ServiceTypeBoarding
			filter := models.PricingRuleFilter{TenantID: &tenant.ID, ServiceType: &boarding}

			count, err := repo.Count(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, int64(4), count)

			exists, err := repo.Exists(ctx, filter)
			require.NoError(t, err)
			assert.True(t, exists)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTenantRepository(t *testing.T) {
	requireTestDB(t)

	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewTenantRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		t.Run("ByEmail", func(t *testing.T) {
			found, err := repo.ByEmail(ctx, tenant.Email)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, tenant.ID, found.ID)
		})

		t.Run("ByEmailNotFound", func(t *testing.T) {
			found, err := repo.ByEmail(ctx, "nobody@example.com")
			require.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, tenant.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, tenant.ID, found.ID)
		})

		return nil
	})
	require.NoError(t, err)
}

package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, TierClub, Normalize("club"))
	assert.Equal(t, TierPro, Normalize(" Pro "))
	assert.Equal(t, TierElite, Normalize("ELITE"))
	assert.Equal(t, TierStarter, Normalize("starter"))
	assert.Equal(t, TierStarter, Normalize("unknown"))
	assert.Equal(t, TierStarter, Normalize(""))
}

func TestRankOrdering(t *testing.T) {
	assert.Less(t, Rank(TierStarter), Rank(TierClub))
	assert.Less(t, Rank(TierClub), Rank(TierPro))
	assert.Less(t, Rank(TierPro), Rank(TierElite))
}

func TestPlayerLimits(t *testing.T) {
	assert.True(t, CanAddPlayer(TierStarter, 29))
	assert.False(t, CanAddPlayer(TierStarter, 30))
	assert.True(t, CanAddPlayer(TierElite, 1999))
}

func TestDocumentStorageLimit(t *testing.T) {
	starterBudget := ForTier(TierStarter).DocumentStorageMB * 1024 * 1024

	assert.True(t, CanStoreDocument(TierStarter, 0, starterBudget))
	assert.False(t, CanStoreDocument(TierStarter, 1, starterBudget))
}

func TestFeatureGates(t *testing.T) {
	assert.False(t, ForTier(TierStarter).TransferWorkflows)
	assert.True(t, ForTier(TierClub).TransferWorkflows)
	assert.False(t, ForTier(TierClub).FinanceReports)
	assert.True(t, ForTier(TierPro).FinanceReports)
}

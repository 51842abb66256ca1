package entitlements

import "strings"

type Tier string

const (
	TierStarter Tier = "starter"
	TierClub    Tier = "club"
	TierPro     Tier = "pro"
	TierElite   Tier = "elite"
)

// Limits are the per-tier usage allowances enforced by the controllers.
type Limits struct {
	MaxPlayers        int64
	MaxStaff          int64
	DocumentStorageMB int64
	TransferWorkflows bool
	FinanceReports    bool
}

// ForTier returns the allowances of a tier. Unknown tiers get the starter
// limits.
func ForTier(tier Tier) Limits {
	switch tier {
	case TierElite:
		return Limits{MaxPlayers: 2000, MaxStaff: 100, DocumentStorageMB: 51200, TransferWorkflows: true, FinanceReports: true}
	case TierPro:
		return Limits{MaxPlayers: 500, MaxStaff: 30, DocumentStorageMB: 10240, TransferWorkflows: true, FinanceReports: true}
	case TierClub:
		return Limits{MaxPlayers: 150, MaxStaff: 10, DocumentStorageMB: 2048, TransferWorkflows: true, FinanceReports: false}
	default:
		return Limits{MaxPlayers: 30, MaxStaff: 3, DocumentStorageMB: 256, TransferWorkflows: false, FinanceReports: false}
	}
}

// Normalize maps arbitrary tier spellings to the known set.
func Normalize(tier string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(tier))) {
	case TierClub:
		return TierClub
	case TierPro:
		return TierPro
	case TierElite:
		return TierElite
	default:
		return TierStarter
	}
}

// Rank orders tiers so upgrade/downgrade checks can compare them.
func Rank(tier Tier) int {
	switch tier {
	case TierElite:
		return 3
	case TierPro:
		return 2
	case TierClub:
		return 1
	default:
		return 0
	}
}

// CanAddPlayer reports whether an academy with the given tier and current
// player count may register one more player.
func CanAddPlayer(tier Tier, currentPlayers int64) bool {
	return currentPlayers < ForTier(tier).MaxPlayers
}

// CanAddStaff reports whether one more staff account fits the tier.
func CanAddStaff(tier Tier, currentStaff int64) bool {
	return currentStaff < ForTier(tier).MaxStaff
}

// CanStoreDocument reports whether an upload of the given size still fits the
// tier's document storage allowance.
func CanStoreDocument(tier Tier, usedBytes, uploadBytes int64) bool {
	return usedBytes+uploadBytes <= ForTier(tier).DocumentStorageMB*1024*1024
}

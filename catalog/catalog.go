/*
Package catalog defines the ActionCatalog: the read-only configuration
mapping roles and actions to point values, caps, expiry windows, badge
criteria, and the reward catalog.

PURPOSE:
  The embedding application supplies the catalog once at startup; the
  engine treats it as an immutable value. Lookups go through a typed map
  keyed by (role, action) instead of ad-hoc searches, and the whole
  document is validated eagerly so a broken catalog fails at boot, not
  at first use.

KEY TYPES:
  Catalog:      Per-role config plus the global reward list
  RoleConfig:   Actions, daily cap, expiry days, conversion ratio, badges
  ActionConfig: Base points, wallet bonus, allowed sub-roles, multiplier cap
  Badge:        Unlock criteria (action + count)
  Reward:       Redeemable item (wallet_credit or catalog_item)

SEE ALSO:
  - load.go: TOML loading
  - validate.go: Eager validation rules
*/
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is the full, immutable action/badge/reward configuration.
// Never mutated after Validate() passes.
type Catalog struct {
	Roles   map[ledger.Role]RoleConfig
	Rewards []Reward
}

// RoleConfig holds everything configured per role.
type RoleConfig struct {
	Actions         map[string]ActionConfig
	MaxPointsPerDay int64
	PointExpiryDays int
	ConversionRatio decimal.Decimal // wallet units per point
	Currency        string
	Badges          []Badge
}

// ActionConfig is the award configuration for one (role, action) pair.
type ActionConfig struct {
	Action            string
	BasePoints        int64
	WalletCreditBonus decimal.Decimal
	AllowedSubRoles   []string
	RoleAgnostic      bool  // when true, any sub-role is accepted
	MaxMultiplier     int64 // cap on caller-supplied multiplier; min 1
}

// Badge is an unlock criterion: `Count` credit entries of `Action`.
type Badge struct {
	ID     string
	Name   string
	Action string
	Count  int64
}

// RewardType distinguishes wallet payouts from fulfillment items.
type RewardType string

const (
	RewardWalletCredit RewardType = "wallet_credit"
	RewardCatalogItem  RewardType = "catalog_item"
)

// Reward is one redeemable catalog item. SingleUse is carried for the
// embedding application; the engine does not enforce it.
type Reward struct {
	ID             string
	Name           string
	PointsRequired int64
	Type           RewardType
	Value          decimal.Decimal // amount for wallet_credit rewards
	Currency       string
	Active         bool
	SingleUse      bool
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Role returns the config for a role, or ErrInvalidRole.
func (c *Catalog) Role(role ledger.Role) (RoleConfig, error) {
	rc, ok := c.Roles[role]
	if !ok {
		return RoleConfig{}, ledger.ErrInvalidRole
	}
	return rc, nil
}

// Action resolves a (role, action, subRole) triple. SubRole may be empty;
// when supplied it must be in the action's allow-list unless the action
// is role-agnostic.
func (c *Catalog) Action(role ledger.Role, action, subRole string) (ActionConfig, error) {
	rc, err := c.Role(role)
	if err != nil {
		return ActionConfig{}, err
	}
	ac, ok := rc.Actions[action]
	if !ok {
		return ActionConfig{}, ledger.ErrInvalidAction
	}
	if subRole != "" && !ac.allowsSubRole(subRole) {
		return ActionConfig{}, ledger.ErrInvalidSubRole
	}
	return ac, nil
}

func (ac ActionConfig) allowsSubRole(subRole string) bool {
	if ac.RoleAgnostic {
		return true
	}
	for _, sr := range ac.AllowedSubRoles {
		if sr == subRole {
			return true
		}
	}
	return false
}

// BadgesForAction returns the role's badges unlocked by an action.
func (c *Catalog) BadgesForAction(role ledger.Role, action string) []Badge {
	rc, ok := c.Roles[role]
	if !ok {
		return nil
	}
	var badges []Badge
	for _, b := range rc.Badges {
		if b.Action == action {
			badges = append(badges, b)
		}
	}
	return badges
}

// Badges returns all badges configured for a role.
func (c *Catalog) Badges(role ledger.Role) []Badge {
	return c.Roles[role].Badges
}

// Reward returns a reward by ID, or ErrRewardNotFound.
func (c *Catalog) Reward(id string) (Reward, error) {
	for _, r := range c.Rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return Reward{}, ledger.ErrRewardNotFound
}

// ActiveRewards returns the redeemable subset of the reward catalog.
func (c *Catalog) ActiveRewards() []Reward {
	var out []Reward
	for _, r := range c.Rewards {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

/*
validate.go - Eager catalog validation

PURPOSE:
  A catalog is validated in full before the engine ever sees it. Invalid
  catalogs fail at startup with a message naming the offending role,
  action, badge, or reward - never at first use.

RULES:
  Roles:   positive daily cap, positive expiry days, non-negative ratio,
           currency required when the role converts or pays bonuses
  Actions: non-empty name, positive base points, multiplier cap >= 1
  Badges:  unique IDs, criteria reference an existing action, count >= 1
  Rewards: unique IDs, known type, positive points cost; wallet_credit
           rewards need a positive value and a currency
*/
package catalog

import "fmt"

// Validate checks the whole catalog. Returns the first violation found.
func (c *Catalog) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf("catalog: no roles configured")
	}

	for role, rc := range c.Roles {
		if rc.MaxPointsPerDay <= 0 {
			return fmt.Errorf("catalog: role %s: max_points_per_day must be positive", role)
		}
		if rc.PointExpiryDays <= 0 {
			return fmt.Errorf("catalog: role %s: point_expiry_days must be positive", role)
		}
		if rc.ConversionRatio.IsNegative() {
			return fmt.Errorf("catalog: role %s: conversion_ratio must not be negative", role)
		}
		if len(rc.Actions) == 0 {
			return fmt.Errorf("catalog: role %s: no actions configured", role)
		}

		needsCurrency := rc.ConversionRatio.IsPositive()
		for name, ac := range rc.Actions {
			if name == "" || ac.Action == "" {
				return fmt.Errorf("catalog: role %s: action with empty name", role)
			}
			if name != ac.Action {
				return fmt.Errorf("catalog: role %s: action key %q does not match name %q", role, name, ac.Action)
			}
			if ac.BasePoints <= 0 {
				return fmt.Errorf("catalog: role %s action %s: base_points must be positive", role, name)
			}
			if ac.MaxMultiplier < 1 {
				return fmt.Errorf("catalog: role %s action %s: max_multiplier must be >= 1", role, name)
			}
			if ac.WalletCreditBonus.IsNegative() {
				return fmt.Errorf("catalog: role %s action %s: wallet_credit_bonus must not be negative", role, name)
			}
			if ac.WalletCreditBonus.IsPositive() {
				needsCurrency = true
			}
		}
		if needsCurrency && rc.Currency == "" {
			return fmt.Errorf("catalog: role %s: currency required when converting points or paying bonuses", role)
		}

		seenBadges := make(map[string]bool, len(rc.Badges))
		for _, b := range rc.Badges {
			if b.ID == "" {
				return fmt.Errorf("catalog: role %s: badge with empty id", role)
			}
			if seenBadges[b.ID] {
				return fmt.Errorf("catalog: role %s: duplicate badge id %s", role, b.ID)
			}
			seenBadges[b.ID] = true
			if _, ok := rc.Actions[b.Action]; !ok {
				return fmt.Errorf("catalog: role %s badge %s: unknown action %q", role, b.ID, b.Action)
			}
			if b.Count < 1 {
				return fmt.Errorf("catalog: role %s badge %s: count must be >= 1", role, b.ID)
			}
		}
	}

	seenRewards := make(map[string]bool, len(c.Rewards))
	for _, r := range c.Rewards {
		if r.ID == "" {
			return fmt.Errorf("catalog: reward with empty id")
		}
		if seenRewards[r.ID] {
			return fmt.Errorf("catalog: duplicate reward id %s", r.ID)
		}
		seenRewards[r.ID] = true
		if r.Type != RewardWalletCredit && r.Type != RewardCatalogItem {
			return fmt.Errorf("catalog: reward %s: unknown type %q", r.ID, r.Type)
		}
		if r.PointsRequired <= 0 {
			return fmt.Errorf("catalog: reward %s: points_required must be positive", r.ID)
		}
		if r.Type == RewardWalletCredit {
			if !r.Value.IsPositive() {
				return fmt.Errorf("catalog: reward %s: wallet_credit value must be positive", r.ID)
			}
			if r.Currency == "" {
				return fmt.Errorf("catalog: reward %s: wallet_credit requires a currency", r.ID)
			}
		}
	}

	return nil
}

/*
load.go - TOML loading for the ActionCatalog

PURPOSE:
  Parses a TOML catalog document into the typed Catalog and validates it.
  Decimal fields (conversion ratios, wallet amounts) are written as TOML
  strings so they parse exactly.

EXAMPLE DOCUMENT:
  [roles.driver]
  max_points_per_day = 400
  point_expiry_days = 30
  conversion_ratio = "0.1"
  currency = "USD"

  [[roles.driver.actions]]
  action = "ride_completed"
  base_points = 150
  wallet_credit_bonus = "0.5"
  allowed_sub_roles = ["owner", "fleet"]
  max_multiplier = 2

  [[roles.driver.badges]]
  id = "century-club"
  name = "Century Club"
  action = "ride_completed"
  count = 100

  [[rewards]]
  id = "gift-card-10"
  name = "$10 Gift Card"
  points_required = 500
  type = "wallet_credit"
  value = "10.00"
  currency = "USD"
  active = true
*/
package catalog

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// TOML DOCUMENT SHAPE
// =============================================================================

type catalogFile struct {
	Roles   map[string]roleFile `toml:"roles"`
	Rewards []rewardFile        `toml:"rewards"`
}

type roleFile struct {
	MaxPointsPerDay int64        `toml:"max_points_per_day"`
	PointExpiryDays int          `toml:"point_expiry_days"`
	ConversionRatio string       `toml:"conversion_ratio"`
	Currency        string       `toml:"currency"`
	Actions         []actionFile `toml:"actions"`
	Badges          []badgeFile  `toml:"badges"`
}

type actionFile struct {
	Action            string   `toml:"action"`
	BasePoints        int64    `toml:"base_points"`
	WalletCreditBonus string   `toml:"wallet_credit_bonus"`
	AllowedSubRoles   []string `toml:"allowed_sub_roles"`
	RoleAgnostic      bool     `toml:"role_agnostic"`
	MaxMultiplier     int64    `toml:"max_multiplier"`
}

type badgeFile struct {
	ID     string `toml:"id"`
	Name   string `toml:"name"`
	Action string `toml:"action"`
	Count  int64  `toml:"count"`
}

type rewardFile struct {
	ID             string `toml:"id"`
	Name           string `toml:"name"`
	PointsRequired int64  `toml:"points_required"`
	Type           string `toml:"type"`
	Value          string `toml:"value"`
	Currency       string `toml:"currency"`
	Active         bool   `toml:"active"`
	SingleUse      bool   `toml:"single_use"`
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads, parses, and validates a catalog from a TOML file.
func Load(path string) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return fromFile(file)
}

// Parse builds a catalog from TOML text. Used by tests.
func Parse(data string) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return fromFile(file)
}

func fromFile(file catalogFile) (*Catalog, error) {
	c := &Catalog{Roles: make(map[ledger.Role]RoleConfig, len(file.Roles))}

	for name, rf := range file.Roles {
		ratio, err := parseDecimal(rf.ConversionRatio, "0")
		if err != nil {
			return nil, fmt.Errorf("role %s: conversion_ratio: %w", name, err)
		}

		rc := RoleConfig{
			Actions:         make(map[string]ActionConfig, len(rf.Actions)),
			MaxPointsPerDay: rf.MaxPointsPerDay,
			PointExpiryDays: rf.PointExpiryDays,
			ConversionRatio: ratio,
			Currency:        rf.Currency,
		}

		for _, af := range rf.Actions {
			bonus, err := parseDecimal(af.WalletCreditBonus, "0")
			if err != nil {
				return nil, fmt.Errorf("role %s action %s: wallet_credit_bonus: %w", name, af.Action, err)
			}
			maxMult := af.MaxMultiplier
			if maxMult == 0 {
				maxMult = 1
			}
			rc.Actions[af.Action] = ActionConfig{
				Action:            af.Action,
				BasePoints:        af.BasePoints,
				WalletCreditBonus: bonus,
				AllowedSubRoles:   af.AllowedSubRoles,
				RoleAgnostic:      af.RoleAgnostic,
				MaxMultiplier:     maxMult,
			}
		}

		for _, bf := range rf.Badges {
			rc.Badges = append(rc.Badges, Badge{
				ID:     bf.ID,
				Name:   bf.Name,
				Action: bf.Action,
				Count:  bf.Count,
			})
		}

		c.Roles[ledger.Role(name)] = rc
	}

	for _, rwf := range file.Rewards {
		value, err := parseDecimal(rwf.Value, "0")
		if err != nil {
			return nil, fmt.Errorf("reward %s: value: %w", rwf.ID, err)
		}
		c.Rewards = append(c.Rewards, Reward{
			ID:             rwf.ID,
			Name:           rwf.Name,
			PointsRequired: rwf.PointsRequired,
			Type:           RewardType(rwf.Type),
			Value:          value,
			Currency:       rwf.Currency,
			Active:         rwf.Active,
			SingleUse:      rwf.SingleUse,
		})
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseDecimal(s, fallback string) (decimal.Decimal, error) {
	if s == "" {
		s = fallback
	}
	return decimal.NewFromString(s)
}

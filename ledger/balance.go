/*
balance.go - Balance computation from ledger entries

PURPOSE:
  Defines the one formula the whole system agrees on:

    balance(u, r, t) = sum of unexpired credits + sum of all debits

  Credits stop contributing once their expiry passes; debits count
  forever. Expiry is a derived state, not a stored one - no write ever
  happens when a credit expires.

  The functions here operate on in-memory entry slices. The in-memory
  store uses them directly; the SQLite store expresses the same formula
  in SQL, and its tests pin the two against each other.
*/
package ledger

import "time"

// Balance computes the spendable balance at time t per the formula above.
// Order-independent: a pure sum over the entries.
func Balance(entries []Entry, t time.Time) int64 {
	var total int64
	for _, e := range entries {
		if e.ExpiredAt(t) {
			continue
		}
		total += e.Points
	}
	return total
}

// DailyCreditTotal sums credit points created on the same UTC day as `day`.
// Debits and entries on other days are ignored. This is the quantity the
// daily cap is enforced against.
func DailyCreditTotal(entries []Entry, day time.Time) int64 {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var total int64
	for _, e := range entries {
		if e.Points <= 0 {
			continue
		}
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		total += e.Points
	}
	return total
}

// QualifyingCount counts credit entries for an action, regardless of expiry.
// Badges reward cumulative lifetime engagement, not current balance, so
// expired credits still count toward badge thresholds.
func QualifyingCount(entries []Entry, action string) int64 {
	var count int64
	for _, e := range entries {
		if e.Action == action && e.Points > 0 {
			count++
		}
	}
	return count
}

// ExpiringWithin sums credit points whose expiry falls in (from, until].
// It reports gross expiring credits; it does not attribute debits to
// specific credits (the ledger has no FIFO consumption order).
func ExpiringWithin(entries []Entry, from, until time.Time) int64 {
	var total int64
	for _, e := range entries {
		if e.Points <= 0 || e.ExpiresAt == nil {
			continue
		}
		if e.ExpiresAt.After(from) && !e.ExpiresAt.After(until) {
			total += e.Points
		}
	}
	return total
}

// Package planlimits resolves the resource ceilings a workspace is entitled to.
//
// A workspace stores a subscription tier (basic, pro, custom), an optional
// subscription end date and up to four nullable per-workspace overrides. The
// package turns those values into effective limits for four metrics:
// workspace count, member count, storage in GB and monthly AI generations.
//
// Resolution happens in two explicit steps so that the clock never leaks into
// the limit math:
//
//	tier, err := planlimits.ResolveActiveTier(ws.Tier, ws.SubscriptionEndDate, time.Now())
//	if err != nil {
//	    return err
//	}
//	limits, err := resolver.EffectiveLimits(tier, &ws.Overrides)
//	if err != nil {
//	    return err
//	}
//	over, err := limits.IsOver(planlimits.MetricMembers, float64(memberCount))
//
// A paid tier without an end date is inactive and resolves to basic. Unknown
// tier strings are always rejected with ErrUnknownTier; there is no silent
// fallback to basic.
//
// Limits are tagged values: a Limit is either Finite(n) or Unlimited(). The
// zero Limit is Finite(0), so a forgotten field blocks usage instead of
// granting unlimited access.
//
// Everything in this package is pure and safe for concurrent use. The Table a
// Resolver is built from is copied on construction and never mutated. A limit
// check followed by a write is a point-in-time advisory decision; the backing
// store has to enforce the ceiling transactionally when races matter.
package planlimits

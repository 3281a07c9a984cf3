// Package workspace enforces plan limits on workspace operations.
//
// Every decision resolves the workspace's active tier with
// planlimits.ResolveActiveTier at the service clock, merges the workspace's
// overrides through Resolver.EffectiveLimits, and compares current usage with
// the result. Usage comes from the Store (workspaces, members, storage) and a
// UsageCounter (monthly AI generations).
//
// Stores: PGStore (pgx) in production, MemoryStore in tests. Counters:
// RedisCounter (go-redis) in production, MemoryCounter in tests.
package workspace

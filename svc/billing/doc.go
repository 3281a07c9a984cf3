// Package billing sells paid tiers through Paddle and keeps each workspace's
// stored tier and subscription end date in step with subscription webhooks.
//
// The package never decides whether a workspace is currently paid. It writes
// the tier and end date; the plan limit resolver downgrades the workspace to
// basic once that date passes.
//
//	provider, err := billing.NewPaddleProvider(paddleCfg)
//	svc, err := billing.NewService(provider, workspaces, resolver, cfg)
//	link, err := svc.Checkout(ctx, workspaceID, planlimits.TierPro)
package billing

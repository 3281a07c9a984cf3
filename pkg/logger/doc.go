// Package logger builds the application's *slog.Logger.
//
// Production and staging log JSON at info level. Development logs colored
// text through tint at debug level. A decorating handler copies request-scoped
// values (such as the chi request id) from the context into every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "virl"),
//	    logger.WithContextExtractors(logger.RequestIDExtractor(middleware.RequestIDKey)),
//	)
//	log.InfoContext(ctx, "workspace created", logger.WorkspaceID(ws.ID), logger.Tier(ws.Tier))
package logger

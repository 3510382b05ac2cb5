// Package logger provides the structured logging interface used across
// imgharvest.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can swap in NewNopLogger or NewTestLogger.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "downloader")
//	log.InfoWithFields("saved", map[string]interface{}{"path": p, "size": n})
package logger

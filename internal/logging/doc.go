// Package logging provides structured logging for parley.
//
// Logs are JSON lines written through log/slog, either to stderr or to a
// size-bounded parley.log in the configured log directory.
//
// # Context
//
// Child loggers carry attributes forward:
//
//	log := logger.WithDebate(runID)
//	log.WithRound(2).WithParticipant("codex:skeptic").Warn("participant failed", "error", err)
//
// A debate run gets a debate_id; each round adds round; each participant
// call adds participant. Session operations add session.
//
// # Rotation
//
// When the file would exceed MaxSizeMB it is renamed to parley.log.1 and
// older backups shift up, keeping at most MaxBackups.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWithWriter] with a buffer to
// assert on emitted entries.
package logging

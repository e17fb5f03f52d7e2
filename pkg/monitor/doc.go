// Package monitor raises alerts when an application code occurs too often.
//
// A rule counts occurrences of one (kind, code) pair in a balance. When the
// balance reaches the rule's threshold the callback fires once and the rule
// is marked triggered. The next occurrence resets the balance to the rule's
// reset value so the rule can fire again. With a decay set, each occurrence
// leaves the balance again after the decay period, which turns the rule into
// a leaky bucket.
//
// The monitor does nothing until Enable is called.
//
//	m := monitor.New(logger)
//	m.Enable()
//	m.Attach(factory)
//	m.RegisterLimit("db.down", 5, func(s monitor.Snapshot) {
//	    logger.Error("database keeps failing", log.Int("occurrences", s.Occurrences))
//	}, monitor.WithDecay(time.Minute))
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package monitor

// Package spawnpoint provides the runtime core of a long running Go service:
// graceful shutdown, application codes, error threshold alerts and fair
// selection over configured collections.
//
// # Basic Usage
//
//	app, err := spawnpoint.New(spawnpoint.Config{
//	    Name:        "api",
//	    TrackErrors: true,
//	    Collections: map[string][]string{"keys": {"k1", "k2", "k3"}},
//	}, spawnpoint.WithLogger(log.NewZerologAdapter()))
//	if err != nil {
//	    return err
//	}
//	if err := app.Setup(ctx); err != nil {
//	    return err
//	}
//
//	// A subsystem holding live resources.
//	app.Register("http")
//	app.OnClose(func() {
//	    _ = server.Shutdown(context.Background())
//	    app.Deregister("http")
//	})
//
//	<-app.Done()
//
// # Lifecycle
//
// The first Stop runs close handlers and waits for every registered
// subsystem to Deregister; the process then exits with code 0. Repeated Stop
// calls escalate: the first arms a StopTimeout deadline and once
// StopAttempts repeated calls have been made the process exits with code 1.
//
// # Codes
//
// ErrorCode and FailCode raise catalog codes as *codes.Error values. With
// TrackErrors enabled every raised code is counted and RegisterLimit
// callbacks fire when thresholds are crossed.
//
// # Collections
//
// RoundRobin returns items of a named collection without repeats until every
// item was returned. GetAndLock and Acquire hand out items exclusively, in
// request order.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and [CompatibilityMatrix]
// to check minimum compatible versions. See version.go for details.
package spawnpoint

// Package lifecycle provides the application run state machine.
//
// A Registry tracks which subsystems still own live resources and decides
// when the process may exit. It moves through five phases:
//
//	Idle -> Setup -> Running -> Stopping -> Exiting
//
// Exiting is terminal and is either graceful (exit code 0) or forced
// (exit code 1).
//
// # Usage
//
//	reg := lifecycle.NewRegistry(lifecycle.DefaultConfig(), logger)
//	if err := reg.Setup(); err != nil {
//	    return err
//	}
//
//	reg.Register("http")
//	reg.OnClose(func() {
//	    go func() {
//	        _ = srv.Shutdown(context.Background())
//	        reg.Deregister("http")
//	    }()
//	})
//	reg.Ready()
//
//	// on SIGINT
//	reg.Stop()
//
// # Shutdown Escalation
//
// The first Stop closes subsystems and exits as soon as the live set is
// empty. The first repeated Stop arms a StopTimeout deadline after which the
// process is killed. After StopAttempts repeated calls the process is killed
// at once.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle

package spawnpoint_test

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/spawnpoint/pkg/log"
	"github.com/bft-labs/spawnpoint/pkg/monitor"
	"github.com/bft-labs/spawnpoint/pkg/spawnpoint"
)

// ExampleNew demonstrates a graceful shutdown with one subsystem.
func ExampleNew() {
	app, err := spawnpoint.New(spawnpoint.DefaultConfig(),
		spawnpoint.WithExitFunc(func(code int) { fmt.Printf("exit %d\n", code) }),
	)
	if err != nil {
		fmt.Printf("failed to create app: %v\n", err)
		return
	}

	if err := app.Setup(context.Background()); err != nil {
		fmt.Printf("failed to set up: %v\n", err)
		return
	}

	app.Register("worker")
	app.OnClose(func() {
		fmt.Println("worker closing")
		app.Deregister("worker")
	})

	app.Stop()
	<-app.Done()

	// Output:
	// worker closing
	// exit 0
}

// Example_registerLimit demonstrates alerting on repeated failures.
func Example_registerLimit() {
	cfg := spawnpoint.DefaultConfig()
	cfg.TrackErrors = true

	app, _ := spawnpoint.New(cfg, spawnpoint.WithExitFunc(func(int) {}))
	_ = app.Setup(context.Background())
	app.Codes().Catalog().Register(map[string]string{
		"db.down": "Database unavailable.",
	})

	app.RegisterLimit("db.down", 2, func(s monitor.Snapshot) {
		fmt.Printf("%s raised %d times\n", s.Code, s.Occurrences)
	})

	for range 4 {
		_ = app.ErrorCode("db.down", nil)
	}

	// Output:
	// db.down raised 2 times
	// db.down raised 4 times
}

// ExampleApp_GetAndLock demonstrates exclusive use of collection items.
func ExampleApp_GetAndLock() {
	cfg := spawnpoint.DefaultConfig()
	cfg.Collections = map[string][]string{"keys": {"api-key-1"}}

	app, _ := spawnpoint.New(cfg, spawnpoint.WithExitFunc(func(int) {}))

	app.GetAndLock("keys", time.Second, func(err error, key string, release func()) {
		if err != nil {
			fmt.Println(err)
			return
		}
		defer release()
		fmt.Println("using", key)
	})

	// Output: using api-key-1
}

// Example_withLogger demonstrates injecting the zerolog adapter.
func Example_withLogger() {
	logger := log.NewZerologAdapter()

	app, err := spawnpoint.New(spawnpoint.DefaultConfig(), spawnpoint.WithLogger(logger))
	if err != nil {
		fmt.Printf("failed to create app: %v\n", err)
		return
	}

	_ = app // Use app...
}

// Example_moduleVersions demonstrates version checking.
func Example_moduleVersions() {
	fmt.Printf("Spawnpoint version: %s\n", spawnpoint.Version)

	versions := spawnpoint.ModuleVersions()
	for module, version := range versions {
		fmt.Printf("%s: %s\n", module, version)
	}
}

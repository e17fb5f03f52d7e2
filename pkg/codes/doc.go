// Package codes links machine readable codes to human readable messages and
// raises them as structured errors.
//
// Two kinds of code errors exist: KindErrorCode for application failures
// such as a database outage, and KindFailCode for user or validation
// failures. Every raised error is published to Factory listeners, which is
// how the monitor package counts occurrences.
//
//	factory := codes.NewFactory(codes.NewCatalog())
//	factory.Catalog().Register(map[string]string{
//	    "user.not_found": "The requested user does not exist.",
//	})
//	return factory.FailCode("user.not_found", map[string]interface{}{"id": id})
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package codes

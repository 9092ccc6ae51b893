// Package app wires the application together: configuration, logging,
// the spreadsheet store, the report service and the HTTP server, plus
// graceful startup and shutdown.
//
// The typical entry point is:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app

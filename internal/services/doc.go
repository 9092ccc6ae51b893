// Package services implements the business logic layer between the HTTP
// handlers and the pipeline packages. ReportService orchestrates the whole
// report lifecycle: parse uploaded files, classify accounts, reconcile
// against the historical set, persist, aggregate, export and notify.
//
// Services are interface-driven for testability, take context.Context on
// every operation, and receive their dependencies (store, reader, exporter,
// webhook, metrics) through constructor injection.
package services

// Package bootstrap orchestrates the setup run: backend selection, database
// provisioning, readiness polling, schema migration and the application
// smoke test. The flow is strictly linear with one branch point (whether a
// container is started); every fatal step gates the final success.
package bootstrap

package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// ClassifyConnectionError turns a raw PostgreSQL connection failure into a
// message with remediation steps the operator can act on.
func ClassifyConnectionError(err error, addr string) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to PostgreSQL at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - PostgreSQL is still starting up (the container needs a few seconds)\n"+
			"  - A firewall is blocking the connection\n"+
			"  Remediation:\n"+
			"  - Check the container: docker ps | grep smartmemo-postgres\n"+
			"  - Verify connectivity: nc -zv %s", addr, addr)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) || strings.Contains(errStr, "connection refused") {
			return fmt.Sprintf("Connection refused by PostgreSQL at %s.\n"+
				"  This usually means the server is not running or not listening yet.\n"+
				"  Remediation:\n"+
				"  - Container backend: docker logs smartmemo-postgres\n"+
				"  - Local backend: check the server is running and listening on %s", addr, addr)
		}
	}

	if strings.Contains(errStr, "no such host") || strings.Contains(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in PostgreSQL address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the postgres.host setting\n"+
			"  - Try 127.0.0.1 instead of a hostname", addr)
	}

	if strings.Contains(errStr, "password authentication") || strings.Contains(errStr, "authentication failed") {
		return fmt.Sprintf("Authentication failed for PostgreSQL at %s.\n"+
			"  Remediation:\n"+
			"  - Verify postgres.user and postgres.password in config.yaml\n"+
			"  - Or set MEMOSETUP_POSTGRES_PASSWORD\n"+
			"  - A container created with a different password must be removed first", addr)
	}

	if strings.Contains(errStr, "does not exist") {
		return fmt.Sprintf("Database missing on PostgreSQL at %s: %v\n"+
			"  Remediation:\n"+
			"  - Local backend: create it with 'createdb memo'\n"+
			"  - Container backend: remove the container so it is recreated with POSTGRES_DB set", addr, err)
	}

	return fmt.Sprintf("Failed to connect to PostgreSQL at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure the server is running and reachable\n"+
		"  - Check the postgres settings in config.yaml", addr, err)
}

// ClassifySQLiteError explains SQLite file failures with remediation steps.
func ClassifySQLiteError(err error, dbPath string) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())
	absPath, _ := filepath.Abs(dbPath)
	parentDir := filepath.Dir(absPath)

	switch {
	case strings.Contains(errStr, "permission denied"):
		return fmt.Sprintf("Permission denied accessing SQLite database at %s.\n"+
			"  Remediation:\n"+
			"  - Check file permissions: ls -la %s\n"+
			"  - Check directory permissions: ls -la %s", absPath, absPath, parentDir)
	case strings.Contains(errStr, "database is locked") || strings.Contains(errStr, "sqlite_busy"):
		return fmt.Sprintf("SQLite database at %s is locked by another process.\n"+
			"  Remediation:\n"+
			"  - Stop any running Smart Memo instance\n"+
			"  - Check for stale -wal/-shm files next to the database", absPath)
	case strings.Contains(errStr, "no such file or directory"):
		return fmt.Sprintf("Cannot create SQLite database, path does not exist: %s.\n"+
			"  Remediation:\n"+
			"  - Create the parent directory: mkdir -p %s", absPath, parentDir)
	case strings.Contains(errStr, "read-only"):
		return fmt.Sprintf("SQLite database location is read-only: %s.\n"+
			"  Remediation:\n"+
			"  - Move the database via MEMOSETUP_SQLITE_PATH or remount read-write", absPath)
	}

	return fmt.Sprintf("Failed to initialize SQLite database at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure %s exists and is writable", absPath, err, parentDir)
}

// EnsureSQLiteDir verifies the SQLite database's parent directory exists and
// is writable before anything touches the file.
func EnsureSQLiteDir(dbPath string) error {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path for %s: %w", dbPath, err)
	}
	dir := filepath.Dir(absPath)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".memosetup_write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	os.Remove(testFile)

	return nil
}

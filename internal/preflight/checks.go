// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// Note: syscall.RLIMIT_NPROC is not exported in Go's syscall package,
// so we read process limits from /proc/self/limits instead.

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(workers int, executorPath, databasePath string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	// File descriptor check
	fdCheck := checkFileDescriptors(workers)
	result.Checks = append(result.Checks, fdCheck)
	if !fdCheck.Passed {
		result.Passed = false
	}

	// Process limit check
	procCheck := checkProcessLimit(workers)
	result.Checks = append(result.Checks, procCheck)
	if !procCheck.Passed {
		result.Passed = false
	}

	// Executor binary check
	execCheck := checkExecutor(executorPath)
	result.Checks = append(result.Checks, execCheck)
	if !execCheck.Passed {
		result.Passed = false
	}

	// Database check
	dbCheck := checkDatabase(databasePath)
	result.Checks = append(result.Checks, dbCheck)
	if !dbCheck.Passed {
		result.Passed = false
	}

	return result
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors(workers int) Check {
	var limit syscall.Rlimit
	syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit)

	// Each executor holds a handful of FDs (stdin/stdout/stderr pipes,
	// its own database handle), plus node overhead for the RPC and
	// metrics listeners.
	required := workers*10 + 100
	actual := int(limit.Cur)

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d workers)", actual, required, workers),
	}
}

// checkProcessLimit verifies sufficient process slots are available.
func checkProcessLimit(workers int) Check {
	required := workers + 50

	// Read soft limit from /proc/self/limits
	data, err := os.ReadFile("/proc/self/limits")
	if err != nil {
		// Non-Linux or restricted access, assume OK
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	// Parse "Max processes" line
	actual := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "Max processes") {
			fields := strings.Fields(line)
			if len(fields) >= 4 {
				if fields[3] == "unlimited" {
					actual = 1000000
				} else {
					fmt.Sscanf(fields[3], "%d", &actual)
				}
			}
			break
		}
	}

	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, required),
	}
}

// checkExecutor verifies the executor binary exists and is executable.
// The binary is not run: executors open the chain database on startup,
// and a probe run against a live database would be a side effect.
func checkExecutor(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "executor",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	if info.IsDir() {
		return Check{
			Name:    "executor",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}

	if info.Mode().Perm()&0o111 == 0 {
		return Check{
			Name:    "executor",
			Passed:  false,
			Message: fmt.Sprintf("%s is not executable", path),
		}
	}

	return Check{
		Name:    "executor",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (%d bytes)", path, info.Size()),
	}
}

// checkDatabase verifies the chain-state database file exists and is
// readable.
func checkDatabase(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "database",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	if info.IsDir() {
		return Check{
			Name:    "database",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return Check{
			Name:    "database",
			Passed:  false,
			Message: fmt.Sprintf("not readable: %v", err),
		}
	}
	f.Close()

	if info.Size() == 0 {
		return Check{
			Name:    "database",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s is empty (no blocks yet?)", path),
		}
	}

	return Check{
		Name:    "database",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (%d bytes)", path, info.Size()),
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 8192 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	case "executor":
		return "install the Cairo executor and pass its path via -executor"
	case "database":
		return "point -db at a synced chain-state database"
	default:
		return "see documentation"
	}
}

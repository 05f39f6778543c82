// Package testutil provides common constants and utilities for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second

	// TestWorkers is the number of goroutines used by concurrency tests
	TestWorkers = 16
)

// Common test table
const (
	// UsersTable is the name of the table most tests create
	UsersTable = "users"
)

// UserColumns are the column specs of UsersTable
var UserColumns = []string{"name:str", "age:int", "active:bool"}

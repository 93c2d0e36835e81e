// Package testutil provides testing utilities for gantry.
//
// This package contains mock errors and test helpers used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
// These errors are used to simulate various failure scenarios in tests.
var (
	// ErrMockStoreUnavailable indicates a mock plan store is unavailable (used in tests).
	ErrMockStoreUnavailable = errors.New("plan store unavailable")

	// ErrMockWorkFailed indicates a mock task handler failed (used in tests).
	ErrMockWorkFailed = errors.New("work failed")

	// ErrMockDiskFull indicates a mock write ran out of disk space (used in tests).
	ErrMockDiskFull = errors.New("no space left on device")

	// ErrMockNotFound indicates a mock resource was not found (used in tests).
	ErrMockNotFound = errors.New("not found")
)

// Package flock provides cross-platform file locking utilities.
//
// The store serializes plan snapshot access across concurrent gantry
// processes with these locks, so a run writing a plan and a watch reading
// it never interleave. Locks are exclusive, non-blocking, and work on
// both Unix and Windows systems.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // Lock not acquired - file is in use
//	}
//	defer flock.Unlock(file.Fd())
package flock

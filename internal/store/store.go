// Package store persists plan and iteration state for gantry.
// It implements the storage layer for plan snapshot files, with atomic
// writes and file locking for data integrity.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mrz1836/gantry/internal/constants"
	"github.com/mrz1836/gantry/internal/domain"
	gerrors "github.com/mrz1836/gantry/internal/errors"
	"github.com/mrz1836/gantry/internal/flock"
)

// LockTimeout is the maximum duration to wait for acquiring a file lock.
const LockTimeout = 5 * time.Second

// Directory and file permission constants.
const (
	dirPerm  = 0o750 // Secure directory permissions
	filePerm = 0o600 // Secure file permissions
)

// validPlanIDRegex matches plan IDs gantry manages: the generated
// plan-XXXXXXXX form and manifest-pinned ids like plan-nightly.
var validPlanIDRegex = regexp.MustCompile(`^plan-[a-z0-9][a-z0-9_-]*$`)

// Store defines the interface for plan persistence operations.
type Store interface {
	// SavePlan writes the plan snapshot, creating or replacing it.
	SavePlan(ctx context.Context, plan *domain.Plan) error

	// LoadPlan retrieves a plan by ID.
	// Returns ErrPlanNotFound if the plan doesn't exist.
	LoadPlan(ctx context.Context, planID string) (*domain.Plan, error)

	// ListPlans returns all stored plans, sorted by creation time (newest first).
	ListPlans(ctx context.Context) ([]*domain.Plan, error)

	// DeletePlan removes a plan and its recorded iterations.
	DeletePlan(ctx context.Context, planID string) error

	// SaveIteration records an iteration snapshot for its plan, replacing
	// any earlier snapshot of the same iteration.
	SaveIteration(ctx context.Context, iter *domain.Iteration) error

	// LoadIterations returns the iterations recorded for a plan, in the
	// order they were first saved.
	LoadIterations(ctx context.Context, planID string) ([]*domain.Iteration, error)
}

// FileStore implements Store using the local filesystem.
type FileStore struct {
	gantryHome string // Usually ~/.gantry
}

// NewFileStore creates a new FileStore with the given gantry home directory.
// If gantryHome is empty, uses the default ~/.gantry directory.
func NewFileStore(gantryHome string) (*FileStore, error) {
	if gantryHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		gantryHome = filepath.Join(home, constants.GantryHome)
	}
	return &FileStore{gantryHome: gantryHome}, nil
}

// SavePlan writes the plan snapshot atomically, creating the plan directory
// on first save.
func (s *FileStore) SavePlan(ctx context.Context, plan *domain.Plan) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if plan == nil {
		return fmt.Errorf("failed to save plan: plan %w", gerrors.ErrEmptyValue)
	}
	if err := validatePlanID(plan.ID); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	planDir := s.planDir(plan.ID)
	if err := os.MkdirAll(planDir, dirPerm); err != nil {
		return fmt.Errorf("failed to create plan directory: %w", err)
	}

	lockFile, err := s.acquireLock(ctx, plan.ID)
	if err != nil {
		return fmt.Errorf("failed to save plan '%s': %w", plan.ID, err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	// Set schema version before saving
	plan.SchemaVersion = constants.PlanSchemaVersion

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save plan '%s': %w", plan.ID, err)
	}

	if err := atomicWrite(s.planFilePath(plan.ID), data); err != nil {
		return fmt.Errorf("failed to save plan '%s': %w", plan.ID, err)
	}

	return nil
}

// LoadPlan retrieves a plan by ID.
func (s *FileStore) LoadPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validatePlanID(planID); err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	planDir := s.planDir(planID)
	if _, err := os.Stat(planDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load plan '%s': %w", planID, gerrors.ErrPlanNotFound)
	}

	lockFile, err := s.acquireLock(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan '%s': %w", planID, err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	data, err := os.ReadFile(s.planFilePath(planID)) //#nosec G304 -- path is validated and constructed from trusted base
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load plan '%s': %w", planID, gerrors.ErrPlanNotFound)
		}
		return nil, fmt.Errorf("failed to read plan '%s': %w", planID, err)
	}

	var plan domain.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan '%s' (%s): %w", planID, err.Error(), gerrors.ErrPlanCorrupted)
	}

	return &plan, nil
}

// ListPlans returns all stored plans, sorted by creation time (newest first).
func (s *FileStore) ListPlans(ctx context.Context) ([]*domain.Plan, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	plansDir := s.plansDir()
	if _, err := os.Stat(plansDir); os.IsNotExist(err) {
		return []*domain.Plan{}, nil
	}

	entries, err := os.ReadDir(plansDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := make([]*domain.Plan, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !validPlanIDRegex.MatchString(entry.Name()) {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		plan, err := s.LoadPlan(ctx, entry.Name())
		if err != nil {
			// Skip directories without a readable plan snapshot.
			continue
		}
		plans = append(plans, plan)
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})

	return plans, nil
}

// DeletePlan removes a plan and its recorded iterations.
func (s *FileStore) DeletePlan(ctx context.Context, planID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := validatePlanID(planID); err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}

	planDir := s.planDir(planID)
	if _, err := os.Stat(planDir); os.IsNotExist(err) {
		return fmt.Errorf("failed to delete plan '%s': %w", planID, gerrors.ErrPlanNotFound)
	}

	lockFile, err := s.acquireLock(ctx, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan '%s': %w", planID, err)
	}
	// Release lock before removal since the lock file is inside the plan
	// directory.
	_ = s.releaseLock(lockFile)

	if err := os.RemoveAll(planDir); err != nil {
		return fmt.Errorf("failed to delete plan '%s': %w", planID, err)
	}

	return nil
}

// SaveIteration records an iteration snapshot under its plan. Saving the
// same iteration again replaces the earlier snapshot in place, so the file
// always holds each iteration's latest state.
func (s *FileStore) SaveIteration(ctx context.Context, iter *domain.Iteration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if iter == nil {
		return fmt.Errorf("failed to save iteration: iteration %w", gerrors.ErrEmptyValue)
	}
	if iter.ID == "" {
		return fmt.Errorf("failed to save iteration: iteration ID %w", gerrors.ErrEmptyValue)
	}
	if err := validatePlanID(iter.PlanID); err != nil {
		return fmt.Errorf("failed to save iteration: %w", err)
	}

	planDir := s.planDir(iter.PlanID)
	if _, err := os.Stat(planDir); os.IsNotExist(err) {
		return fmt.Errorf("failed to save iteration '%s': plan '%s' %w", iter.ID, iter.PlanID, gerrors.ErrPlanNotFound)
	}

	lockFile, err := s.acquireLock(ctx, iter.PlanID)
	if err != nil {
		return fmt.Errorf("failed to save iteration '%s': %w", iter.ID, err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	iterations, err := s.readIterations(iter.PlanID)
	if err != nil {
		return fmt.Errorf("failed to save iteration '%s': %w", iter.ID, err)
	}

	replaced := false
	for i, existing := range iterations {
		if existing.ID == iter.ID {
			iterations[i] = iter
			replaced = true
			break
		}
	}
	if !replaced {
		iterations = append(iterations, iter)
	}

	data, err := json.MarshalIndent(iterations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save iteration '%s': %w", iter.ID, err)
	}

	if err := atomicWrite(s.iterationsFilePath(iter.PlanID), data); err != nil {
		return fmt.Errorf("failed to save iteration '%s': %w", iter.ID, err)
	}

	return nil
}

// LoadIterations returns the iterations recorded for a plan.
func (s *FileStore) LoadIterations(ctx context.Context, planID string) ([]*domain.Iteration, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validatePlanID(planID); err != nil {
		return nil, fmt.Errorf("failed to load iterations: %w", err)
	}

	planDir := s.planDir(planID)
	if _, err := os.Stat(planDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load iterations: plan '%s' %w", planID, gerrors.ErrPlanNotFound)
	}

	lockFile, err := s.acquireLock(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load iterations for plan '%s': %w", planID, err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	iterations, err := s.readIterations(planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load iterations for plan '%s': %w", planID, err)
	}
	return iterations, nil
}

// readIterations reads the iterations file without locking; callers hold
// the plan lock. A missing file means no iterations were recorded yet.
func (s *FileStore) readIterations(planID string) ([]*domain.Iteration, error) {
	data, err := os.ReadFile(s.iterationsFilePath(planID)) //#nosec G304 -- path is validated and constructed from trusted base
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Iteration{}, nil
		}
		return nil, err
	}

	var iterations []*domain.Iteration
	if err := json.Unmarshal(data, &iterations); err != nil {
		return nil, fmt.Errorf("parse iterations (%s): %w", err.Error(), gerrors.ErrPlanCorrupted)
	}
	return iterations, nil
}

// validatePlanID rejects empty ids and ids that could escape the plans
// directory.
func validatePlanID(planID string) error {
	if planID == "" {
		return fmt.Errorf("plan ID %w", gerrors.ErrEmptyValue)
	}
	if strings.Contains(planID, "..") || strings.Contains(planID, "/") || strings.Contains(planID, "\\") {
		return gerrors.ErrPathTraversal
	}
	return nil
}

// Helper methods for path construction

// plansDir returns the path to the plans directory.
func (s *FileStore) plansDir() string {
	return filepath.Join(s.gantryHome, constants.PlansDir)
}

// planDir returns the path to a specific plan's directory.
func (s *FileStore) planDir(planID string) string {
	return filepath.Join(s.plansDir(), planID)
}

// planFilePath returns the path to a plan's JSON snapshot.
func (s *FileStore) planFilePath(planID string) string {
	return filepath.Join(s.planDir(planID), constants.PlanFileName)
}

// iterationsFilePath returns the path to a plan's iterations file.
func (s *FileStore) iterationsFilePath(planID string) string {
	return filepath.Join(s.planDir(planID), constants.IterationsFileName)
}

// lockFilePath returns the path to a plan's lock file.
func (s *FileStore) lockFilePath(planID string) string {
	return filepath.Join(s.planDir(planID), constants.PlanFileName+".lock")
}

// acquireLock acquires an exclusive file lock for the plan.
// It respects context cancellation during the lock acquisition retry loop.
func (s *FileStore) acquireLock(ctx context.Context, planID string) (*os.File, error) {
	lockPath := s.lockFilePath(planID)

	planDir := s.planDir(planID)
	if err := os.MkdirAll(planDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerm) //#nosec G302,G304 -- lock file needs write access, path is constructed from validated id
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(LockTimeout)
	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		// Non-blocking attempt so the loop stays responsive to cancellation.
		if err := flock.Exclusive(f.Fd()); err == nil {
			return f, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock: %w", gerrors.ErrLockTimeout)
		}

		time.Sleep(50 * time.Millisecond)
	}
}

// releaseLock releases a file lock.
func (s *FileStore) releaseLock(f *os.File) error {
	if f == nil {
		return nil
	}

	if err := flock.Unlock(f.Fd()); err != nil {
		// Still try to close the file
		_ = f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return f.Close()
}

// atomicWrite writes data to a file atomically using write-then-rename.
// Uses filePerm (0o600) for secure file permissions.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	// Sync to disk before rename so a crash never leaves a partial snapshot
	// behind the final name.
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

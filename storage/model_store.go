package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"model-lifecycle/core/logger"
	"model-lifecycle/core/models"
)

// DefaultKeep is the number of versions Prune keeps when callers have no preference
const DefaultKeep = 3

var (
	modelIDPattern      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	artifactFilePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)_v([0-9]+)\.json$`)
)

const activeSuffix = ".active.json"

// BackupMirror receives a copy of every file written by Backup
type BackupMirror interface {
	Upload(ctx context.Context, key string, body []byte) error
}

// ModelStore persists versioned model artifacts as one JSON file per (model, version).
// Files are written to a temp file and renamed, so readers never observe partial writes.
type ModelStore struct {
	dir    string
	log    *logger.Logger
	mirror BackupMirror
	now    func() time.Time

	// serializes mutations; reads go straight to the filesystem
	writeMu sync.Mutex
}

// NewModelStore creates the store directory if needed
func NewModelStore(dir string, log *logger.Logger) (*ModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory %s: %w: %w", dir, models.ErrIO, err)
	}
	return &ModelStore{
		dir: dir,
		log: log.With("component", "model_store"),
		now: time.Now,
	}, nil
}

// SetBackupMirror uploads future backups to the given mirror as well
func (s *ModelStore) SetBackupMirror(m BackupMirror) {
	s.mirror = m
}

// Dir returns the directory holding the live artifacts
func (s *ModelStore) Dir() string {
	return s.dir
}

// Save writes an artifact under its (ModelID, Version). Overwriting an existing
// version is allowed; callers own version monotonicity. Use SaveNext to let the
// store assign the version.
func (s *ModelStore) Save(artifact *models.SavedModel) (string, error) {
	if err := validateArtifact(artifact); err != nil {
		return "", err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(artifact)
}

// SaveNext assigns the next version for the artifact's model and saves it
func (s *ModelStore) SaveNext(artifact *models.SavedModel) (int, string, error) {
	if artifact == nil || !modelIDPattern.MatchString(artifact.ModelID) {
		return 0, "", fmt.Errorf("invalid model artifact: %w", models.ErrInvalidInput)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := s.nextVersion(artifact.ModelID)
	if err != nil {
		return 0, "", err
	}
	artifact.Version = next
	path, err := s.save(artifact)
	if err != nil {
		return 0, "", err
	}
	return artifact.Version, path, nil
}

// NextVersion returns the version the next save of modelID would get
func (s *ModelStore) NextVersion(modelID string) (int, error) {
	if !modelIDPattern.MatchString(modelID) {
		return 0, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	return s.nextVersion(modelID)
}

func (s *ModelStore) nextVersion(modelID string) (int, error) {
	versions, err := s.versions(modelID)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 1, nil
	}
	return versions[len(versions)-1] + 1, nil
}

func (s *ModelStore) save(artifact *models.SavedModel) (string, error) {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode model %s v%d: %w", artifact.ModelID, artifact.Version, err)
	}
	path := s.artifactPath(artifact.ModelID, artifact.Version)
	if err := writeAtomic(s.dir, path, data); err != nil {
		return "", fmt.Errorf("failed to save model %s v%d: %w: %w", artifact.ModelID, artifact.Version, models.ErrIO, err)
	}

	s.log.Info("Model saved", "model_id", artifact.ModelID, "version", artifact.Version, "path", path)
	return path, nil
}

// Load reads one version; version <= 0 resolves to the latest
func (s *ModelStore) Load(modelID string, version int) (*models.SavedModel, error) {
	if !modelIDPattern.MatchString(modelID) {
		return nil, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	if version <= 0 {
		versions, err := s.versions(modelID)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("model %s: %w", modelID, models.ErrNotFound)
		}
		version = versions[len(versions)-1]
	}

	data, err := os.ReadFile(s.artifactPath(modelID, version))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("model %s v%d: %w", modelID, version, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s v%d: %w: %w", modelID, version, models.ErrIO, err)
	}

	var artifact models.SavedModel
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode model %s v%d: %w: %w", modelID, version, models.ErrIO, err)
	}
	return &artifact, nil
}

// Latest returns the highest stored version of a model
func (s *ModelStore) Latest(modelID string) (*models.SavedModel, error) {
	return s.Load(modelID, 0)
}

// Versions returns the stored versions of one model, ascending
func (s *ModelStore) Versions(modelID string) ([]int, error) {
	return s.versions(modelID)
}

// List groups every stored artifact by model. Scan failures yield an empty list.
func (s *ModelStore) List() []models.ModelVersions {
	byModel, err := s.scan()
	if err != nil {
		s.log.Warn("Failed to scan model directory", "dir", s.dir, "error", err)
		return []models.ModelVersions{}
	}

	out := make([]models.ModelVersions, 0, len(byModel))
	for id, versions := range byModel {
		sort.Ints(versions)
		out = append(out, models.ModelVersions{ModelID: id, Versions: versions})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// Delete removes one version; false if it did not exist
func (s *ModelStore) Delete(modelID string, version int) (bool, error) {
	if !modelIDPattern.MatchString(modelID) {
		return false, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.delete(modelID, version)
}

func (s *ModelStore) delete(modelID string, version int) (bool, error) {
	err := os.Remove(s.artifactPath(modelID, version))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete model %s v%d: %w: %w", modelID, version, models.ErrIO, err)
	}
	s.log.Info("Model version deleted", "model_id", modelID, "version", version)
	return true, nil
}

// Prune deletes all but the keep highest versions. A pinned active version is
// never pruned, so keep+1 versions can remain when the pin is older than the
// kept ones. Returns the number of deleted versions.
func (s *ModelStore) Prune(modelID string, keep int) (int, error) {
	if !modelIDPattern.MatchString(modelID) {
		return 0, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d: %w", keep, models.ErrInvalidInput)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	versions, err := s.versions(modelID)
	if err != nil {
		return 0, err
	}
	if len(versions) <= keep {
		return 0, nil
	}

	pinned := 0
	if ptr, err := s.readPointer(modelID); err == nil {
		pinned = ptr.Version
	}

	deleted := 0
	for _, v := range versions[:len(versions)-keep] {
		if v == pinned {
			continue
		}
		ok, err := s.delete(modelID, v)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}

	s.log.Info("Model versions pruned", "model_id", modelID, "keep", keep, "deleted", deleted)
	return deleted, nil
}

// Backup copies every live file into a timestamped sibling directory and
// returns its path. Live versions are untouched.
func (s *ModelStore) Backup(ctx context.Context) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stamp := s.now().UTC().Format("20060102T150405.000000000Z")
	dest := filepath.Clean(s.dir) + "-backup-" + stamp
	if err := os.Mkdir(dest, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w: %w", dest, models.ErrIO, err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to read model directory %s: %w: %w", s.dir, models.ErrIO, err)
	}

	copied := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isStoreFile(name) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w: %w", name, models.ErrIO, err)
		}
		if err := os.WriteFile(filepath.Join(dest, name), data, 0o644); err != nil {
			return "", fmt.Errorf("failed to copy %s: %w: %w", name, models.ErrIO, err)
		}
		if s.mirror != nil {
			key := filepath.Base(dest) + "/" + name
			if err := s.mirror.Upload(ctx, key, data); err != nil {
				return "", fmt.Errorf("failed to upload %s: %w: %w", key, models.ErrIO, err)
			}
		}
		copied++
	}

	s.log.Info("Model store backed up", "path", dest, "files", copied, "mirrored", s.mirror != nil)
	return dest, nil
}

// SetActive pins the version served for a model
func (s *ModelStore) SetActive(modelID string, version int, reason string) error {
	if !modelIDPattern.MatchString(modelID) {
		return fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.setActive(modelID, version, reason)
}

func (s *ModelStore) setActive(modelID string, version int, reason string) error {
	if _, err := os.Stat(s.artifactPath(modelID, version)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("model %s v%d: %w", modelID, version, models.ErrNotFound)
		}
		return fmt.Errorf("failed to stat model %s v%d: %w: %w", modelID, version, models.ErrIO, err)
	}

	ptr := models.ActivePointer{
		ModelID:   modelID,
		Version:   version,
		UpdatedAt: s.now().UTC(),
		Reason:    reason,
	}
	data, err := json.Marshal(ptr)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.dir, s.pointerPath(modelID), data); err != nil {
		return fmt.Errorf("failed to write active pointer for %s: %w: %w", modelID, models.ErrIO, err)
	}

	s.log.Info("Active model version set", "model_id", modelID, "version", version, "reason", reason)
	return nil
}

// ActiveVersion returns the pinned version, or the latest when no valid pin exists
func (s *ModelStore) ActiveVersion(modelID string) (int, error) {
	if !modelIDPattern.MatchString(modelID) {
		return 0, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	return s.activeVersion(modelID)
}

func (s *ModelStore) activeVersion(modelID string) (int, error) {
	versions, err := s.versions(modelID)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("model %s: %w", modelID, models.ErrNotFound)
	}

	if ptr, err := s.readPointer(modelID); err == nil {
		for _, v := range versions {
			if v == ptr.Version {
				return v, nil
			}
		}
	}
	return versions[len(versions)-1], nil
}

// Active loads the version currently served for a model
func (s *ModelStore) Active(modelID string) (*models.SavedModel, error) {
	version, err := s.ActiveVersion(modelID)
	if err != nil {
		return nil, err
	}
	return s.Load(modelID, version)
}

// Rollback pins the highest version below the currently active one and returns it
func (s *ModelStore) Rollback(modelID string) (int, error) {
	if !modelIDPattern.MatchString(modelID) {
		return 0, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.activeVersion(modelID)
	if err != nil {
		return 0, err
	}
	versions, err := s.versions(modelID)
	if err != nil {
		return 0, err
	}

	previous := 0
	for _, v := range versions {
		if v < current {
			previous = v
		}
	}
	if previous == 0 {
		return 0, fmt.Errorf("no version of %s below v%d to roll back to: %w", modelID, current, models.ErrNotFound)
	}

	if err := s.setActive(modelID, previous, fmt.Sprintf("rollback from v%d", current)); err != nil {
		return 0, err
	}
	return previous, nil
}

// DemoteLatest pins the second-highest stored version and returns the version
// active afterwards. It does nothing when the active version is already at or
// below that target, so repeated calls settle on the same version.
func (s *ModelStore) DemoteLatest(modelID string) (int, error) {
	if !modelIDPattern.MatchString(modelID) {
		return 0, fmt.Errorf("invalid model id %q: %w", modelID, models.ErrInvalidInput)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	versions, err := s.versions(modelID)
	if err != nil {
		return 0, err
	}
	if len(versions) < 2 {
		return 0, fmt.Errorf("model %s has no earlier version to fall back to: %w", modelID, models.ErrNotFound)
	}
	target := versions[len(versions)-2]

	current, err := s.activeVersion(modelID)
	if err != nil {
		return 0, err
	}
	if current <= target {
		s.log.Info("Active version already at or below fallback", "model_id", modelID, "active", current, "fallback", target)
		return current, nil
	}

	if err := s.setActive(modelID, target, fmt.Sprintf("fallback from v%d after failed training", current)); err != nil {
		return 0, err
	}
	return target, nil
}

func (s *ModelStore) readPointer(modelID string) (*models.ActivePointer, error) {
	data, err := os.ReadFile(s.pointerPath(modelID))
	if err != nil {
		return nil, err
	}
	var ptr models.ActivePointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, err
	}
	return &ptr, nil
}

func (s *ModelStore) versions(modelID string) ([]int, error) {
	byModel, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan model directory %s: %w: %w", s.dir, models.ErrIO, err)
	}
	versions := byModel[modelID]
	sort.Ints(versions)
	return versions, nil
}

func (s *ModelStore) scan() (map[string][]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	byModel := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := artifactFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[2])
		if err != nil || version < 1 {
			continue
		}
		byModel[match[1]] = append(byModel[match[1]], version)
	}
	return byModel, nil
}

func (s *ModelStore) artifactPath(modelID string, version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_v%d.json", modelID, version))
}

func (s *ModelStore) pointerPath(modelID string) string {
	return filepath.Join(s.dir, modelID+activeSuffix)
}

func validateArtifact(a *models.SavedModel) error {
	if a == nil {
		return fmt.Errorf("nil model artifact: %w", models.ErrInvalidInput)
	}
	if !modelIDPattern.MatchString(a.ModelID) {
		return fmt.Errorf("invalid model id %q: %w", a.ModelID, models.ErrInvalidInput)
	}
	if a.Version < 1 {
		return fmt.Errorf("invalid version %d for model %s: %w", a.Version, a.ModelID, models.ErrInvalidInput)
	}
	return nil
}

func isStoreFile(name string) bool {
	return artifactFilePattern.MatchString(name) || strings.HasSuffix(name, activeSuffix)
}

// writeAtomic writes data next to path and renames it into place
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/trackd/backend/internal/domain/shared"
	"github.com/trackd/backend/internal/domain/tracking"
	"go.uber.org/zap"
)

// PackageService handles the package CRUD business operations. Every
// operation is a load-modify-save cycle against the full record set; the
// mutex serializes mutating cycles so overlapping requests cannot drop each
// other's writes.
type PackageService struct {
	repo   tracking.PackageRepository
	images ImageStore
	logger *zap.Logger

	mu sync.Mutex
}

// NewPackageService creates a new PackageService
func NewPackageService(repo tracking.PackageRepository, images ImageStore, logger *zap.Logger) *PackageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackageService{
		repo:   repo,
		images: images,
		logger: logger,
	}
}

// List returns the full current record set in store order. A failed read is
// logged and served as an empty set.
func (s *PackageService) List(ctx context.Context) []tracking.Package {
	return s.loadAll(ctx)
}

// Create creates a new package from the supplied fields and optional upload.
// A record without a tracking number gets a generated 10-digit one; a
// duplicate tracking number is a conflict and nothing is created.
func (s *PackageService) Create(ctx context.Context, req SaveRequest) (*tracking.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	packages := s.loadAll(ctx)

	trackingNumber := req.TrackingNumber()
	if trackingNumber == "" {
		trackingNumber = tracking.GenerateTrackingNumber()
	}
	for _, existing := range packages {
		if existing.TrackingNumber == trackingNumber {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A package with this tracking number already exists")
		}
	}

	now := time.Now()
	pkg := tracking.NewPackage(trackingNumber, now)
	pkg.Merge(req.Fields)

	if err := s.resolveImage(ctx, pkg, req, ""); err != nil {
		return nil, err
	}
	pkg.Events = s.resolveCreateEvents(req.Fields["events"], trackingNumber, now)

	packages = append(packages, *pkg)
	if err := s.repo.SaveAll(ctx, packages); err != nil {
		s.logger.Error("failed to persist package set", zap.Error(err), zap.String("trackingNumber", trackingNumber))
		return nil, shared.ErrPersistence
	}

	s.logger.Info("package created", zap.String("trackingNumber", trackingNumber))
	return pkg, nil
}

// Update shallow-merges the supplied fields over the stored record and
// resolves the image and event values on the merged result.
func (s *PackageService) Update(ctx context.Context, trackingNumber string, req SaveRequest) (*tracking.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	packages := s.loadAll(ctx)

	idx := indexOf(packages, trackingNumber)
	if idx < 0 {
		return nil, shared.NewDomainError("NOT_FOUND", "Package not found")
	}

	pkg := packages[idx]
	previousImage := pkg.PackageImage
	pkg.Merge(req.Fields)

	if err := s.resolveImage(ctx, &pkg, req, previousImage); err != nil {
		return nil, err
	}
	pkg.Events = s.resolveMergedEvents(pkg.Events, trackingNumber)

	packages[idx] = pkg
	if err := s.repo.SaveAll(ctx, packages); err != nil {
		s.logger.Error("failed to persist package set", zap.Error(err), zap.String("trackingNumber", trackingNumber))
		return nil, shared.ErrPersistence
	}

	s.logger.Info("package updated", zap.String("trackingNumber", trackingNumber))
	return &pkg, nil
}

// Delete removes a package and its managed image. Global packages are
// protected and cannot be deleted.
func (s *PackageService) Delete(ctx context.Context, trackingNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	packages := s.loadAll(ctx)

	idx := indexOf(packages, trackingNumber)
	if idx < 0 {
		return shared.NewDomainError("NOT_FOUND", "Package not found")
	}
	if packages[idx].IsGlobal {
		return shared.NewDomainError("FORBIDDEN", "Global packages cannot be deleted")
	}

	s.deleteManagedImage(ctx, packages[idx].PackageImage)

	remaining := append(packages[:idx:idx], packages[idx+1:]...)
	if err := s.repo.SaveAll(ctx, remaining); err != nil {
		s.logger.Error("failed to persist package set", zap.Error(err), zap.String("trackingNumber", trackingNumber))
		return shared.ErrPersistence
	}

	s.logger.Info("package deleted", zap.String("trackingNumber", trackingNumber))
	return nil
}

// loadAll reads the full record set, degrading a failed read to an empty set.
// The degradation is deliberate: a corrupt store document must not take the
// read API down, but it is always logged.
func (s *PackageService) loadAll(ctx context.Context) []tracking.Package {
	packages, err := s.repo.LoadAll(ctx)
	if err != nil {
		s.logger.Warn("record store read failed; continuing with empty set", zap.Error(err))
	}
	if packages == nil {
		packages = []tracking.Package{}
	}
	return packages
}

// resolveImage applies the image resolution rules shared by create and
// update. previousImage is the image reference held before the merge; it is
// empty on create.
func (s *PackageService) resolveImage(ctx context.Context, pkg *tracking.Package, req SaveRequest, previousImage string) error {
	if req.File != nil {
		s.deleteManagedImage(ctx, previousImage)
		path, err := s.images.Save(ctx, req.File.Data, req.File.Name)
		if err != nil {
			s.logger.Error("failed to store uploaded image", zap.Error(err), zap.String("file", req.File.Name))
			return shared.NewDomainError("PERSISTENCE", "Failed to store uploaded image")
		}
		pkg.PackageImage = path
		return nil
	}

	if isEmptyImageValue(pkg.PackageImage) {
		s.deleteManagedImage(ctx, previousImage)
		pkg.PackageImage = tracking.PlaceholderImage
	}
	return nil
}

// resolveCreateEvents applies the create-time event rules: absent or empty
// input synthesizes the default creation event, serialized payloads are
// deserialized, and an undecodable payload is kept verbatim.
func (s *PackageService) resolveCreateEvents(raw any, trackingNumber string, now time.Time) any {
	if raw == nil || raw == "" {
		return []tracking.Event{tracking.NewCreatedEvent(now)}
	}
	decoded, ok := tracking.DecodeEvents(raw)
	if !ok {
		s.logger.Debug("keeping raw events payload", zap.String("trackingNumber", trackingNumber))
		return decoded
	}
	if tracking.EventCount(decoded) == 0 {
		return []tracking.Event{tracking.NewCreatedEvent(now)}
	}
	return decoded
}

// resolveMergedEvents applies the deserialize-or-keep-raw rule to the merged
// events value on update. No default event is synthesized here.
func (s *PackageService) resolveMergedEvents(merged any, trackingNumber string) any {
	if merged == nil {
		return merged
	}
	decoded, ok := tracking.DecodeEvents(merged)
	if !ok {
		s.logger.Debug("keeping raw events payload", zap.String("trackingNumber", trackingNumber))
	}
	return decoded
}

// deleteManagedImage best-effort removes an image that lives under the
// managed store. Failures are logged and never fail the enclosing request.
func (s *PackageService) deleteManagedImage(ctx context.Context, path string) {
	if path == "" || path == tracking.PlaceholderImage || !s.images.Managed(path) {
		return
	}
	if err := s.images.Delete(ctx, path); err != nil {
		s.logger.Warn("failed to delete managed image", zap.Error(err), zap.String("path", path))
	}
}

func indexOf(packages []tracking.Package, trackingNumber string) int {
	for i, pkg := range packages {
		if pkg.TrackingNumber == trackingNumber {
			return i
		}
	}
	return -1
}

func isEmptyImageValue(v string) bool {
	return v == "" || v == "null" || v == "undefined"
}

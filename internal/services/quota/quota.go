package quota

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blkmlk/file-dashboard/internal/services/repository"
)

const (
	PlanFree       = "free"
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"

	PlanStatusActive = "active"
)

const (
	gib = int64(1) << 30
	tib = int64(1) << 40

	QuotaFree       = 10 * gib
	QuotaBasic      = 50 * gib
	QuotaPro        = 1 * tib
	QuotaEnterprise = 10 * tib
)

// PlanSource resolves an owner's plan. Backed by the billing system in
// production; the repository's plan table is a local replica of it.
type PlanSource interface {
	GetPlan(ctx context.Context, ownerID string) (*repository.PlanRecord, error)
}

type Breakdown struct {
	Documents int64
	Photos    int64
	Videos    int64
	Others    int64
}

// Usage sums the storage footprint of an owner. Trashed files still count;
// only permanent deletion frees quota. Folders carry no bytes.
type Usage struct {
	TotalSize  int64
	TotalFiles int
	Breakdown  Breakdown
}

type Service struct {
	repo  repository.Repository
	plans PlanSource
	log   *zap.SugaredLogger
}

func New(repo repository.Repository, plans PlanSource, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:  repo,
		plans: plans,
		log:   log,
	}
}

func (s *Service) ComputeUsage(ctx context.Context, ownerID string) (*Usage, error) {
	records, err := repository.FetchAll(ctx, s.repo, repository.ListFilter{
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, err
	}

	var usage Usage
	for _, record := range records {
		if record.Kind != repository.FileKindFile {
			continue
		}

		usage.TotalFiles++
		usage.TotalSize += record.Size

		switch bucket(record.MimeType) {
		case "photos":
			usage.Breakdown.Photos += record.Size
		case "videos":
			usage.Breakdown.Videos += record.Size
		case "documents":
			usage.Breakdown.Documents += record.Size
		default:
			usage.Breakdown.Others += record.Size
		}
	}

	return &usage, nil
}

var documentMarkers = []string{
	"document",
	"pdf",
	"text",
	"spreadsheet",
	"presentation",
	"word",
	"excel",
	"powerpoint",
	"msword",
	"officedocument",
	"ms-excel",
	"ms-powerpoint",
}

func bucket(mimeType string) string {
	m := strings.ToLower(mimeType)

	switch {
	case strings.HasPrefix(m, "image/"):
		return "photos"
	case strings.HasPrefix(m, "video/"):
		return "videos"
	}

	for _, marker := range documentMarkers {
		if strings.Contains(m, marker) {
			return "documents"
		}
	}

	return "others"
}

// ResolveQuota maps the owner's plan to its byte ceiling. Any failure to
// resolve the plan falls back to the free tier rather than blocking the
// caller.
func (s *Service) ResolveQuota(ctx context.Context, ownerID string) int64 {
	plan, err := s.plans.GetPlan(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.With("err", err, "owner_id", ownerID).Warn("plan lookup failed, defaulting to free")
		}
		return QuotaFree
	}

	if plan.Status != "" && plan.Status != PlanStatusActive {
		return QuotaFree
	}

	switch plan.PlanID {
	case PlanBasic:
		return QuotaBasic
	case PlanPro:
		return QuotaPro
	case PlanEnterprise:
		return QuotaEnterprise
	default:
		return QuotaFree
	}
}

// UsagePercentage renders usage as a whole percent, floored at 0.1 so that
// nonzero usage never displays as empty.
func UsagePercentage(totalSize, maxStorage int64) float64 {
	if totalSize == 0 || maxStorage <= 0 {
		return 0
	}

	pct := math.Round(100 * float64(totalSize) / float64(maxStorage))
	if pct == 0 {
		return 0.1
	}
	return pct
}

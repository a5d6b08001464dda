package quota_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/blkmlk/file-dashboard/deps"
	"github.com/blkmlk/file-dashboard/internal/mocks"
	"github.com/blkmlk/file-dashboard/internal/services/quota"
	"github.com/blkmlk/file-dashboard/internal/services/repository"
)

func TestAll(t *testing.T) {
	suite.Run(t, new(testSuite))
}

type testSuite struct {
	suite.Suite
	ctn     *dig.Container
	repo    repository.Repository
	plans   *mocks.PlanSource
	service *quota.Service
}

func (t *testSuite) SetupTest() {
	t.ctn = dig.New()
	t.Require().NoError(t.ctn.Provide(deps.NewLocalDB))
	t.Require().NoError(t.ctn.Provide(repository.New))
	t.Require().NoError(t.ctn.Provide(mocks.NewPlanSource))
	t.Require().NoError(t.ctn.Provide(func(p *mocks.PlanSource) quota.PlanSource { return p }))
	t.Require().NoError(t.ctn.Provide(func() *zap.SugaredLogger { return zap.NewNop().Sugar() }))
	t.Require().NoError(t.ctn.Provide(quota.New))

	err := t.ctn.Invoke(func(db *gorm.DB) error {
		return repository.Migrate(db)
	})
	t.Require().NoError(err)

	err = t.ctn.Invoke(func(repo repository.Repository, plans *mocks.PlanSource, service *quota.Service) {
		t.repo = repo
		t.plans = plans
		t.service = service
	})
	t.Require().NoError(err)
}

func (t *testSuite) createFile(ownerID, name, mimeType string, size int64, deleted bool) {
	ctx := context.Background()

	file := repository.NewFile(ownerID, name, mimeType, uuid.NewString(), "", size, nil)
	file.IsDeleted = deleted
	t.Require().NoError(t.repo.CreateFile(ctx, &file))
}

func (t *testSuite) TestComputeUsageBreakdown() {
	ctx := context.Background()
	ownerID := uuid.NewString()

	t.createFile(ownerID, "cat.png", "image/png", 100, false)
	t.createFile(ownerID, "dog.heic", "image/heic", 50, false)
	t.createFile(ownerID, "clip.mp4", "video/mp4", 1000, false)
	t.createFile(ownerID, "cv.pdf", "application/pdf", 30, false)
	t.createFile(ownerID, "sheet.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", 20, false)
	t.createFile(ownerID, "legacy.doc", "application/msword", 10, false)
	t.createFile(ownerID, "data.bin", "application/octet-stream", 7, false)
	t.createFile(ownerID, "unknown", "", 3, false)

	// trashed files still count toward usage
	t.createFile(ownerID, "trashed.png", "image/png", 25, true)

	folder := repository.NewFolder(ownerID, "dir", nil)
	t.Require().NoError(t.repo.CreateFile(ctx, &folder))

	usage, err := t.service.ComputeUsage(ctx, ownerID)
	t.Require().NoError(err)

	t.Require().Equal(9, usage.TotalFiles)
	t.Require().Equal(int64(175), usage.Breakdown.Photos)
	t.Require().Equal(int64(1000), usage.Breakdown.Videos)
	t.Require().Equal(int64(60), usage.Breakdown.Documents)
	t.Require().Equal(int64(10), usage.Breakdown.Others)

	sum := usage.Breakdown.Documents + usage.Breakdown.Photos + usage.Breakdown.Videos + usage.Breakdown.Others
	t.Require().Equal(usage.TotalSize, sum)
}

func (t *testSuite) TestComputeUsageEmptyOwner() {
	usage, err := t.service.ComputeUsage(context.Background(), uuid.NewString())
	t.Require().NoError(err)
	t.Require().Zero(usage.TotalSize)
	t.Require().Zero(usage.TotalFiles)
}

func (t *testSuite) TestResolveQuota() {
	ctx := context.Background()

	cases := []struct {
		planID string
		want   int64
	}{
		{quota.PlanFree, quota.QuotaFree},
		{quota.PlanBasic, quota.QuotaBasic},
		{quota.PlanPro, quota.QuotaPro},
		{quota.PlanEnterprise, quota.QuotaEnterprise},
		{"something-else", quota.QuotaFree},
	}

	for _, c := range cases {
		ownerID := uuid.NewString()
		t.plans.SetPlan(ownerID, c.planID, quota.PlanStatusActive)
		t.Require().Equal(c.want, t.service.ResolveQuota(ctx, ownerID), c.planID)
	}
}

func (t *testSuite) TestResolveQuotaDefaultsToFree() {
	ctx := context.Background()

	// no plan record
	t.Require().Equal(quota.QuotaFree, t.service.ResolveQuota(ctx, uuid.NewString()))

	// inactive plan
	ownerID := uuid.NewString()
	t.plans.SetPlan(ownerID, quota.PlanPro, "canceled")
	t.Require().Equal(quota.QuotaFree, t.service.ResolveQuota(ctx, ownerID))

	// lookup failure
	t.plans.SetErr(errors.New("plan service unavailable"))
	t.Require().Equal(quota.QuotaFree, t.service.ResolveQuota(ctx, ownerID))
}

func TestUsagePercentage(t *testing.T) {
	if got := quota.UsagePercentage(0, quota.QuotaFree); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := quota.UsagePercentage(1, 10_000_000_000); got != 0.1 {
		t.Fatalf("expected 0.1, got %v", got)
	}
	if got := quota.UsagePercentage(5_000_000_000, 10_000_000_000); got != 50 {
		t.Fatalf("expected 50, got %v", got)
	}
	if got := quota.UsagePercentage(10_000_000_000, 10_000_000_000); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

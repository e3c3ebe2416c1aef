package service

import (
	"context"
	"log"
	"time"

	"github.com/nimbushq/nimbus-backend/internal/db"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/types"
)

const featureCacheTTL = 5 * time.Minute

// BillingService resolves an organization's plan and feature set.
// Resolution is two-tier: a tenant-attached billing relation wins
// (realm "cloud"); otherwise the instance-wide license is consulted
// (realm "ee"). The same code serves hosted and self-managed
// deployments through this split.
type BillingService interface {
	// BillingPlanDetails returns (plan, realm). Both are empty when no
	// plan resolves.
	BillingPlanDetails(ctx context.Context, organizationID string) (string, string, error)
	BillingPlan(ctx context.Context, organizationID string) (string, error)
	AvailableFeatures(ctx context.Context, organizationID string) ([]string, error)
	IsFeatureAvailable(ctx context.Context, organizationID, feature string) (bool, error)

	SetBilling(ctx context.Context, organizationID string, planKey *string, features []string) error
	AddLicense(ctx context.Context, key, planKey string, validUntil time.Time) (*repository.License, error)
}

type billingService struct {
	repos *repository.Repositories
	cache *db.RedisDB
}

func NewBillingService(repos *repository.Repositories, cache *db.RedisDB) BillingService {
	return &billingService{repos: repos, cache: cache}
}

func (s *billingService) BillingPlanDetails(ctx context.Context, organizationID string) (string, string, error) {
	billing, err := s.repos.BillingRepo.FindByOrganization(ctx, organizationID)
	if err != nil {
		return "", "", err
	}
	if billing != nil {
		// The relation exists; a nil plan key means the subscription
		// was explicitly cleared, which must not fall through to the
		// instance license.
		if billing.PlanKey == nil {
			return "", "", nil
		}
		return *billing.PlanKey, types.RealmCloud, nil
	}

	license, err := s.repos.LicenseRepo.FirstValid(ctx)
	if err != nil {
		return "", "", err
	}
	if license != nil {
		return license.PlanKey, types.RealmEE, nil
	}
	return "", "", nil
}

func (s *billingService) BillingPlan(ctx context.Context, organizationID string) (string, error) {
	plan, _, err := s.BillingPlanDetails(ctx, organizationID)
	return plan, err
}

func (s *billingService) AvailableFeatures(ctx context.Context, organizationID string) ([]string, error) {
	if s.cache != nil {
		if features, ok, err := s.cache.GetFeatures(ctx, organizationID); err != nil {
			log.Printf("[Billing] Feature cache read failed: %v", err)
		} else if ok {
			return features, nil
		}
	}

	features, err := s.resolveFeatures(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetFeatures(ctx, organizationID, features, featureCacheTTL); err != nil {
			log.Printf("[Billing] Feature cache write failed: %v", err)
		}
	}
	return features, nil
}

func (s *billingService) resolveFeatures(ctx context.Context, organizationID string) ([]string, error) {
	plan, realm, err := s.BillingPlanDetails(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if plan == "" {
		return []string{}, nil
	}
	if realm == types.RealmEE {
		features, ok := repository.PlanFeatures[plan]
		if !ok {
			return []string{}, nil
		}
		return features, nil
	}

	billing, err := s.repos.BillingRepo.FindByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if billing == nil {
		return []string{}, nil
	}
	return billing.AvailableFeatures, nil
}

func (s *billingService) IsFeatureAvailable(ctx context.Context, organizationID, feature string) (bool, error) {
	features, err := s.AvailableFeatures(ctx, organizationID)
	if err != nil {
		return false, err
	}
	for _, f := range features {
		if f == feature {
			return true, nil
		}
	}
	return false, nil
}

func (s *billingService) SetBilling(ctx context.Context, organizationID string, planKey *string, features []string) error {
	billing := &repository.OrganizationBilling{
		OrganizationID:    organizationID,
		PlanKey:           planKey,
		AvailableFeatures: features,
	}
	if err := s.repos.BillingRepo.Upsert(ctx, billing); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateFeatures(ctx, organizationID); err != nil {
			log.Printf("[Billing] Feature cache invalidation failed: %v", err)
		}
	}
	return nil
}

func (s *billingService) AddLicense(ctx context.Context, key, planKey string, validUntil time.Time) (*repository.License, error) {
	license := &repository.License{
		Key:        key,
		PlanKey:    planKey,
		ValidUntil: validUntil,
	}
	if err := s.repos.LicenseRepo.Create(ctx, license); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	// A new license can change the plan of every organization on the
	// instance.
	if s.cache != nil {
		if err := s.cache.InvalidateAllFeatures(ctx); err != nil {
			log.Printf("[Billing] Feature cache flush failed: %v", err)
		}
	}
	return license, nil
}

package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"edtech-market-scout/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionCompanyRepository defines the interface for session-scoped
// companies, their profiles and their sources.
type SessionCompanyRepository interface {
	// UpsertByName creates the company or, when a company with the same
	// case-insensitive name already exists in the session, refreshes its
	// discovery fields and returns the stored row in place of the argument.
	UpsertByName(ctx context.Context, company *entity.SessionCompany) error
	FindByID(ctx context.Context, id string) (*entity.SessionCompany, error)
	FindBySession(ctx context.Context, sessionID string) ([]entity.SessionCompany, error)
	Update(ctx context.Context, company *entity.SessionCompany) error
	SetStatus(ctx context.Context, id string, status entity.CompanyStatus) error
	SaveProfile(ctx context.Context, profile *entity.CompanyProfile) error
	FindProfile(ctx context.Context, companyID string) (*entity.CompanyProfile, error)
	AddSources(ctx context.Context, companyID string, sources []entity.CompanySource) error
	FindSources(ctx context.Context, companyID string) ([]entity.CompanySource, error)
}

// NewSessionCompanyRepository creates a new SessionCompanyRepository.
func NewSessionCompanyRepository(db *gorm.DB) SessionCompanyRepository {
	return &sessionCompanyRepository{db: db}
}

type sessionCompanyRepository struct {
	db *gorm.DB
}

func (r *sessionCompanyRepository) UpsertByName(ctx context.Context, company *entity.SessionCompany) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.SessionCompany
		err := tx.Where("session_id = ? AND LOWER(name) = ?", company.SessionID, strings.ToLower(company.Name)).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(company).Error
		}
		if err != nil {
			return err
		}

		existing.Status = entity.CompanyStatusPending
		if company.Domain != "" {
			existing.Domain = company.Domain
		}
		if len(company.PrimaryTags) > 0 {
			existing.PrimaryTags = company.PrimaryTags
		}
		if company.Summary != "" {
			existing.Summary = company.Summary
		}
		existing.DataReliability = company.DataReliability
		existing.UpdatedAt = time.Now()
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*company = existing
		return nil
	})
}

func (r *sessionCompanyRepository) FindByID(ctx context.Context, id string) (*entity.SessionCompany, error) {
	var company entity.SessionCompany
	err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *sessionCompanyRepository) FindBySession(ctx context.Context, sessionID string) ([]entity.SessionCompany, error) {
	var companies []entity.SessionCompany
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&companies).Error
	return companies, err
}

func (r *sessionCompanyRepository) Update(ctx context.Context, company *entity.SessionCompany) error {
	company.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(company).Error
}

func (r *sessionCompanyRepository) SetStatus(ctx context.Context, id string, status entity.CompanyStatus) error {
	return r.db.WithContext(ctx).Model(&entity.SessionCompany{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *sessionCompanyRepository) SaveProfile(ctx context.Context, profile *entity.CompanyProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		UpdateAll: true,
	}).Create(profile).Error
}

func (r *sessionCompanyRepository) FindProfile(ctx context.Context, companyID string) (*entity.CompanyProfile, error) {
	var profile entity.CompanyProfile
	err := r.db.WithContext(ctx).First(&profile, "company_id = ?", companyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *sessionCompanyRepository) AddSources(ctx context.Context, companyID string, sources []entity.CompanySource) error {
	if len(sources) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.findSourceURLs(tx, companyID)
		if err != nil {
			return err
		}
		for i := range sources {
			src := sources[i]
			if src.URL == "" || existing[src.URL] {
				continue
			}
			src.CompanyID = companyID
			if err := tx.Create(&src).Error; err != nil {
				return err
			}
			existing[src.URL] = true
		}
		return nil
	})
}

func (r *sessionCompanyRepository) FindSources(ctx context.Context, companyID string) ([]entity.CompanySource, error) {
	var sources []entity.CompanySource
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id ASC").
		Find(&sources).Error
	return sources, err
}

func (r *sessionCompanyRepository) findSourceURLs(tx *gorm.DB, companyID string) (map[string]bool, error) {
	var sources []entity.CompanySource
	if err := tx.Select("url").Where("company_id = ?", companyID).Find(&sources).Error; err != nil {
		return nil, err
	}
	urls := make(map[string]bool, len(sources))
	for _, s := range sources {
		urls[s.URL] = true
	}
	return urls, nil
}

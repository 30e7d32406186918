package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"investment-calculator/internal/models"

	"github.com/antzucaro/matchr"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// searchThreshold is the minimum Jaro-Winkler similarity for a search hit.
const searchThreshold = 0.75

type AnalysisStore struct {
	db        *gorm.DB
	freeLimit int
}

func NewAnalysisStore(db *gorm.DB, freeLimit int) *AnalysisStore {
	return &AnalysisStore{db: db, freeLimit: freeLimit}
}

func (s *AnalysisStore) FreeLimit() int {
	return s.freeLimit
}

type SaveParams struct {
	UserID  int64
	Address string
	Type    models.CalculatorType
	Payload []byte
	Notes   string
}

// Save creates the analysis for (user, address, type) or, when one already
// exists, updates it in place. Every call appends an AnalysisVersion.
func (s *AnalysisStore) Save(ctx context.Context, p SaveParams) (models.Analysis, bool, error) {
	normalized := models.NormalizeAddress(p.Address)
	if normalized == "" {
		return models.Analysis{}, false, fmt.Errorf("%w: address is required", ErrInvalid)
	}
	if !p.Type.Valid() {
		return models.Analysis{}, false, fmt.Errorf("%w: unknown calculator type %q", ErrInvalid, p.Type)
	}

	var (
		out     models.Analysis
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, p.UserID).Error; err != nil {
			return notFound(err)
		}

		var existing models.Analysis
		err := tx.Where(
			"user_id = ? AND normalized_address = ? AND calculator_type = ?",
			p.UserID, normalized, p.Type,
		).First(&existing).Error

		switch {
		case err == nil:
			existing.Address = strings.TrimSpace(p.Address)
			existing.Payload = datatypes.JSON(p.Payload)
			existing.Notes = p.Notes
			// the summary described the previous numbers
			existing.AISummary = ""
			existing.Version++
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if user.Tier == models.TierFree {
				var count int64
				if err := tx.Model(&models.Analysis{}).Where("user_id = ?", p.UserID).Count(&count).Error; err != nil {
					return err
				}
				if count >= int64(s.freeLimit) {
					return ErrLimitReached
				}
			}
			out = models.Analysis{
				UserID:            p.UserID,
				Address:           strings.TrimSpace(p.Address),
				NormalizedAddress: normalized,
				CalculatorType:    p.Type,
				Payload:           datatypes.JSON(p.Payload),
				Notes:             p.Notes,
				Version:           1,
			}
			if err := tx.Create(&out).Error; err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		version := models.AnalysisVersion{
			AnalysisID: out.ID,
			Version:    out.Version,
			Payload:    out.Payload,
			Notes:      out.Notes,
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		return models.Analysis{}, false, err
	}
	return out, created, nil
}

func (s *AnalysisStore) List(ctx context.Context, userID int64) ([]models.Analysis, error) {
	var out []models.Analysis
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

func (s *AnalysisStore) Get(ctx context.Context, userID, id int64) (models.Analysis, error) {
	var a models.Analysis
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	return a, notFound(err)
}

func (s *AnalysisStore) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Analysis{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (s *AnalysisStore) Delete(ctx context.Context, userID, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Analysis
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("analysis_id = ?", a.ID).Delete(&models.AnalysisVersion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&a).Error
	})
}

// Versions returns the history of an analysis, newest first.
func (s *AnalysisStore) Versions(ctx context.Context, userID, id int64) ([]models.AnalysisVersion, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	var out []models.AnalysisVersion
	err := s.db.WithContext(ctx).
		Where("analysis_id = ?", id).
		Order("version DESC").
		Find(&out).Error
	return out, err
}

func (s *AnalysisStore) SetAISummary(ctx context.Context, userID, id int64, summary string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Analysis{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("ai_summary", summary)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search ranks the user's analyses by how closely their address matches query.
func (s *AnalysisStore) Search(ctx context.Context, userID int64, query string) ([]models.Analysis, error) {
	all, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	q := models.NormalizeAddress(query)
	if q == "" {
		return all, nil
	}

	type scored struct {
		a     models.Analysis
		score float64
	}
	var hits []scored
	for _, a := range all {
		score := matchr.JaroWinkler(q, a.NormalizedAddress, false)
		if strings.Contains(a.NormalizedAddress, q) {
			score = 1
		}
		if score >= searchThreshold {
			hits = append(hits, scored{a: a, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]models.Analysis, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.a)
	}
	return out, nil
}

package storage

import (
	"context"
	"errors"

	"investment-calculator/internal/models"

	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Tier:         models.TierFree,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserStore) ByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return user, notFound(err)
}

func (s *UserStore) ByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	return user, notFound(err)
}

// UpsertGoogle finds the user linked to a Google subject, links an existing
// account with the same email, or creates a password-less account.
func (s *UserStore) UpsertGoogle(ctx context.Context, subject, email string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_subject = ?", subject).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			user.GoogleSubject = &subject
			return tx.Model(&user).Update("google_subject", subject).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:         email,
				GoogleSubject: &subject,
				Tier:          models.TierFree,
			}
			return tx.Create(&user).Error
		default:
			return err
		}
	})
	return user, err
}

func (s *UserStore) SetTier(ctx context.Context, id int64, tier models.Tier) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("tier", tier)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) SetStripeCustomer(ctx context.Context, id int64, customerID string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("stripe_customer_id", customerID).Error
}

func (s *UserStore) SetTierByStripeCustomer(ctx context.Context, customerID string, tier models.Tier) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("stripe_customer_id = ?", customerID).Update("tier", tier)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

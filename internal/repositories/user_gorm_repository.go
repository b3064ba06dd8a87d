package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nikki/internal/common"
	"nikki/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database. The duplicate check compares
// lower-cased, trimmed names; the username itself is stored as given.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	normalized := strings.ToLower(strings.TrimSpace(user.Username))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("LOWER(username) = ?", normalized).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return common.ErrDuplicateUser
		}
		return tx.Create(user).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrDuplicateUser), errors.Is(err, gorm.ErrDuplicatedKey):
		user.ID = 0
		return fmt.Errorf("username '%s' already taken: %w", user.Username, common.ErrDuplicateUser)
	default:
		user.ID = 0
		return storeError("create user", err)
	}
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with username %s: %w", username, common.ErrNotFound)
		}
		return nil, storeError("get user by username", err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %d: %w", id, common.ErrNotFound)
		}
		return nil, storeError("get user by ID", err)
	}
	return &user, nil
}

// Delete deletes a user and every diary they own in one transaction.
func (r *GORMUserRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Diary{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return common.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("user with ID %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return storeError("delete user", err)
	}
	return nil
}

package repositories

import (
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"nikki/internal/common"
	"nikki/internal/models"
)

// storeError logs an unexpected store fault and converts it to
// common.ErrPersistFailed, keeping the cause in the chain.
func storeError(op string, err error) error {
	log.Printf("Store error while trying to %s: %v", op, err)
	return fmt.Errorf("failed to %s: %w: %w", op, common.ErrPersistFailed, err)
}

// validateDiary checks the fields every write must carry.
func validateDiary(d *models.Diary) error {
	if d.UserID == 0 {
		return fmt.Errorf("diary has no owner: %w", common.ErrValidation)
	}
	if strings.TrimSpace(d.Content) == "" {
		return fmt.Errorf("diary content is required: %w", common.ErrValidation)
	}
	if utf8.RuneCountInString(d.Content) > models.MaxContentLength {
		return fmt.Errorf("diary content exceeds %d characters: %w", models.MaxContentLength, common.ErrValidation)
	}
	if utf8.RuneCountInString(d.Title) > models.MaxTitleLength {
		return fmt.Errorf("diary title exceeds %d characters: %w", models.MaxTitleLength, common.ErrValidation)
	}
	return nil
}

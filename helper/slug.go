package helper

import (
	"fmt"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// GenerateUniqueSlug slugifies name and appends -1, -2, ... until no row of table uses it.
func GenerateUniqueSlug(tx *gorm.DB, table any, name string) (string, error) {
	base := slug.Make(name)
	result := base
	i := 1

	for {
		var count int64
		if err := tx.Model(table).Where("slug = ?", result).Count(&count).Error; err != nil {
			return "", fmt.Errorf("slug lookup for %q: %w", result, err)
		}

		if count == 0 {
			break
		}
		result = fmt.Sprintf("%s-%d", base, i)
		i++
	}

	return result, nil
}

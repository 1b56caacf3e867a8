package repository

import "gorm.io/gorm"

// AutoMigrate creates the schema from the entities. Used for sqlite setups;
// postgres deployments run the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserEntity{}, &ItemEntity{}, &AccountEntity{}, &TransactionEntity{})
}

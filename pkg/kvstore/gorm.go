package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is the backing row for one (namespace, identity) scope.
type Document struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Identity  string    `gorm:"primaryKey;size:255"`
	Doc       []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName keeps the table aligned with the storage namespaces it holds.
func (Document) TableName() string {
	return "kv_documents"
}

// GormStore persists documents in the configured relational database, sqlite
// by default.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the backing table and returns a durable store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("kvstore: gorm db is required")
	}
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, namespace, identity string) ([]byte, error) {
	var record Document
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND identity = ?", namespace, identity).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record.Doc, nil
}

func (s *GormStore) Put(ctx context.Context, namespace, identity string, doc []byte) error {
	record := Document{
		Namespace: namespace,
		Identity:  identity,
		Doc:       doc,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "identity"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).
		Create(&record).Error
}

func (s *GormStore) Delete(ctx context.Context, namespace, identity string) error {
	return s.db.WithContext(ctx).
		Where("namespace = ? AND identity = ?", namespace, identity).
		Delete(&Document{}).Error
}

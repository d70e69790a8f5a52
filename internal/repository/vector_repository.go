package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pdfqa/internal/model"
)

// VectorRepository persists vector collections and their chunk rows.
type VectorRepository struct {
	db *gorm.DB
}

func NewVectorRepository(db *gorm.DB) *VectorRepository {
	return &VectorRepository{db: db}
}

// GetCollection returns the collection by name, or nil when absent.
func (r *VectorRepository) GetCollection(ctx context.Context, name string) (*model.VectorCollection, error) {
	var col model.VectorCollection
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&col).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vector collection failed: %w", err)
	}
	return &col, nil
}

// ReplaceCollection swaps the named collection for the given rows inside a
// single transaction. Readers see the old complete collection until the
// transaction commits, then only the new one.
func (r *VectorRepository) ReplaceCollection(ctx context.Context, col *model.VectorCollection, chunks []model.VectorChunk) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.VectorCollection
		err := tx.Where("name = ?", col.Name).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("collection_id = ?", existing.ID).Delete(&model.VectorChunk{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first index for this document
		default:
			return err
		}

		if err := tx.Create(col).Error; err != nil {
			return err
		}
		for i := range chunks {
			chunks[i].CollectionID = col.ID
		}
		if err := tx.Create(&chunks).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace vector collection failed: %w", err)
	}
	return nil
}

// DeleteCollection removes the collection and its chunks; no-op if absent.
func (r *VectorRepository) DeleteCollection(ctx context.Context, name string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.VectorCollection
		err := tx.Where("name = ?", name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("collection_id = ?", existing.ID).Delete(&model.VectorChunk{}).Error; err != nil {
			return err
		}
		return tx.Delete(&existing).Error
	})
	if err != nil {
		return fmt.Errorf("delete vector collection failed: %w", err)
	}
	return nil
}

// ListChunks returns all chunk rows of a collection in insertion order.
func (r *VectorRepository) ListChunks(ctx context.Context, collectionID uint) ([]model.VectorChunk, error) {
	var chunks []model.VectorChunk
	if err := r.db.WithContext(ctx).Where("collection_id = ?", collectionID).Order("position ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list vector chunks failed: %w", err)
	}
	return chunks, nil
}

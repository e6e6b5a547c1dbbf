package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument()

	assert.False(t, id.IsNil(doc.ID))
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, doc.CreatedAt, doc.Date)
	assert.NoError(t, doc.Validate(context.Background()))
}

func TestBaseDocumentTouch(t *testing.T) {
	doc := NewBaseDocument()
	doc.UpdatedAt = time.Now().Add(-time.Hour)
	before := doc.UpdatedAt

	doc.Touch()

	assert.Equal(t, 2, doc.Version)
	assert.True(t, doc.UpdatedAt.After(before))
}

func TestDocumentValidate_RequiresDate(t *testing.T) {
	doc := Document{}
	err := doc.Validate(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

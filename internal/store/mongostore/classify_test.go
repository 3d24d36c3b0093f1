package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"

	"smartattendance/internal/apperr"
	"smartattendance/internal/store"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("find", nil))
	assert.ErrorIs(t, classify("find", mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, classify("insert", dup), store.ErrDuplicate)

	assert.True(t, apperr.Is(classify("find", mongo.ErrClientDisconnected), apperr.CodeUnavailable))
}

package persistence

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoDB_Database(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns configured database", func(mt *mtest.T) {
		mdb := &MongoDB{logger: slog.Default(), client: mt.Client, database: mt.DB}
		assert.Equal(mt, mt.DB, mdb.Database())
	})
}

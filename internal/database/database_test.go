package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		require.NoError(t, pingContext(context.Background(), db))
	})

	t.Run("unsupported driver", func(t *testing.T) {
		_, err := Open("oracle", "dsn")
		assert.Error(t, err)
	})

	t.Run("empty dsn", func(t *testing.T) {
		_, err := Open("postgres", "")
		assert.Error(t, err)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, buy_order TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO items (buy_order) VALUES ('BO-1')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO items (buy_order) VALUES ('BO-1')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, ViolatedColumn(err, "buy_order"))
	assert.False(t, ViolatedColumn(err, "token"))

	dup := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'BO-1' for key 'orders.buy_order'"})
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, ViolatedColumn(dup, "buy_order"))

	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}

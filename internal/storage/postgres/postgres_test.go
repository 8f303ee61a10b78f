package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tour360/editor/internal/config"
	"github.com/tour360/editor/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew_UnreachableServer(t *testing.T) {
	_, err := New(config.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "tour360",
		SSLMode:  "disable",
	}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Postgres DB")
}

package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

type captureWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *captureWriter) Printf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func (w *captureWriter) output() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Join(w.lines, "\n")
}

func TestLoggerSkipsRecordNotFound(t *testing.T) {
	w := &captureWriter{}
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: newLogger(w, false)})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Customer{}))

	var c models.Customer
	err = conn.WithContext(context.Background()).Where("email = ?", "ghost@example.com").First(&c).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.NotContains(t, w.output(), "record not found")
}

func TestLoggerReportsQueryErrors(t *testing.T) {
	w := &captureWriter{}
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: newLogger(w, false)})
	require.NoError(t, err)

	err = conn.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.Contains(t, w.output(), "missing_table")
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn", false)
	assert.Error(t, err)
}

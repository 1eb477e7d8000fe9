package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"launchpad/internal/models"
)

func TestMigrateAndSeedIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "seed.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, MigrateAndSeed(db))
	require.NoError(t, MigrateAndSeed(db))

	var agents []models.AIAgent
	require.NoError(t, db.Order("agent_type").Find(&agents).Error)
	require.Len(t, agents, 4)

	byType := map[models.AgentType]models.AIAgent{}
	for _, a := range agents {
		byType[a.AgentType] = a
	}
	assert.Equal(t, "Marketing Specialist", byType[models.AgentMarketing].Name)
	assert.InDelta(t, 0.3, byType[models.AgentAnalytics].Temperature, 1e-9)
	assert.Equal(t, 1500, byType[models.AgentLaunchGuide].MaxTokens)
}

package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpenGormWithDialector_Success(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	// one ping from gorm.Open, one from the pool check
	mock.ExpectPing()
	mock.ExpectPing()

	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true, // don't query @@version
	})

	gdb, err := OpenGormWithDialector(dial, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, gdb)
	assert.True(t, gdb.Config.TranslateError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenGormWithDialector_PingFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("no ping"))

	dial := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})

	gdb, err := OpenGormWithDialector(dial, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, gdb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_CreatesTables(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, table := range []string{
		"memberships", "org_policies", "grants", "vesting_events",
		"loan_applications", "share_reservations", "workflow_stages", "loan_documents",
	} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
	assert.True(t, gdb.Migrator().HasIndex("loan_applications", "ux_loan_apps_create_key"))
	assert.True(t, gdb.Migrator().HasIndex("loan_applications", "ux_loan_apps_submit_key"))
	assert.True(t, gdb.Migrator().HasIndex("share_reservations", "ux_share_res_grant_app"))
}

func TestGormLoggerLevel(t *testing.T) {
	l := zerolog.Nop().Level(zerolog.DebugLevel)
	assert.NotNil(t, newGormLogger(l))
	assert.NotNil(t, newGormLogger(zerolog.Nop().Level(zerolog.InfoLevel)))
}

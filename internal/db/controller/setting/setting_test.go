package setting

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/apperror"
	"github.com/boxwatch/boxwatch/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	// Migrate the schema
	err = db.AutoMigrate(&models.AppSettings{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func strPtr(s string) *string { return &s }

// decodePatch builds a patch the way the REST layer does, from a JSON body.
func decodePatch(t *testing.T, body string) models.SettingsPatch {
	t.Helper()

	var p models.SettingsPatch
	require.NoError(t, json.Unmarshal([]byte(body), &p))

	return p
}

func TestGet_CreatesDefaults(t *testing.T) {
	db := setupTestDB(t)

	s, err := Get(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, uint(models.SettingsRowID), s.ID)
	assert.True(t, s.ShowAlertBanner)
	assert.False(t, s.HasPin())
	assert.False(t, s.IsAdminMode)

	_, err = Get(context.Background(), nil)
	require.ErrorIs(t, err, ErrDBNil)
}

func TestSeed_DoesNotOverwrite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, db, models.AppSettings{CurrentUserID: strPtr("user-001"), ShowAlertBanner: true}))
	require.NoError(t, Seed(ctx, db, models.AppSettings{CurrentUserID: strPtr("user-999")}))

	s, err := Get(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, s.CurrentUserID)
	assert.Equal(t, "user-001", *s.CurrentUserID)
	assert.True(t, s.ShowAlertBanner)
}

func TestUpdate_MergeRules(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		assert func(t *testing.T, s *models.AppSettings)
	}{
		{
			name: "empty body keeps everything",
			body: `{}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				require.NotNil(t, s.CurrentUserID)
				assert.Equal(t, "user-001", *s.CurrentUserID)
				assert.True(t, s.ShowAlertBanner)
				require.NotNil(t, s.SensorBoundBoxID)
				assert.Equal(t, "B01", *s.SensorBoundBoxID)
			},
		},
		{
			name: "current user value sets",
			body: `{"currentUserId":"user-002"}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				require.NotNil(t, s.CurrentUserID)
				assert.Equal(t, "user-002", *s.CurrentUserID)
			},
		},
		{
			name: "current user null keeps",
			body: `{"currentUserId":null}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				require.NotNil(t, s.CurrentUserID)
				assert.Equal(t, "user-001", *s.CurrentUserID)
			},
		},
		{
			name: "banner false sets",
			body: `{"showAlertBanner":false}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				assert.False(t, s.ShowAlertBanner)
			},
		},
		{
			name: "bound box null clears",
			body: `{"sensorBoundBoxId":null}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				assert.Nil(t, s.SensorBoundBoxID)
			},
		},
		{
			name: "bound box value sets",
			body: `{"sensorBoundBoxId":"B03"}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				require.NotNil(t, s.SensorBoundBoxID)
				assert.Equal(t, "B03", *s.SensorBoundBoxID)
			},
		},
		{
			name: "admin mode without pin stays off",
			body: `{"isAdminMode":true}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				assert.False(t, s.IsAdminMode)
			},
		},
		{
			name: "pin and admin mode together",
			body: `{"adminPin":"1234","isAdminMode":true}`,
			assert: func(t *testing.T, s *models.AppSettings) {
				assert.True(t, s.HasPin())
				assert.True(t, s.IsAdminMode)
				assert.NotEqual(t, "1234", *s.AdminPin, "pin must be stored hashed")
				assert.True(t, s.VerifyPin("1234"))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)
			ctx := context.Background()

			require.NoError(t, Seed(ctx, db, models.AppSettings{
				CurrentUserID:    strPtr("user-001"),
				ShowAlertBanner:  true,
				SensorBoundBoxID: strPtr("B01"),
			}))

			got, err := Update(ctx, db, decodePatch(t, tc.body))
			require.NoError(t, err)
			tc.assert(t, got)

			stored, err := Get(ctx, db)
			require.NoError(t, err)
			tc.assert(t, stored)
		})
	}
}

func TestUpdate_ClearingPinForcesAdminModeOff(t *testing.T) {
	bodies := []string{
		`{"adminPin":null}`,
		`{"adminPin":""}`,
		`{"adminPin":null,"isAdminMode":true}`,
		`{"isAdminMode":true,"adminPin":""}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			db := setupTestDB(t)
			ctx := context.Background()

			_, err := Update(ctx, db, models.SettingsPatch{AdminPin: models.Set("4321")})
			require.NoError(t, err)

			enabled, err := EnableAdminMode(ctx, db, "4321")
			require.NoError(t, err)
			require.True(t, enabled)

			s, err := Update(ctx, db, decodePatch(t, body))
			require.NoError(t, err)
			assert.False(t, s.HasPin())
			assert.False(t, s.IsAdminMode)

			stored, err := Get(ctx, db)
			require.NoError(t, err)
			assert.Nil(t, stored.AdminPin)
			assert.False(t, stored.IsAdminMode)
		})
	}
}

func TestUpdate_RejectsNonNumericPin(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, pin := range []string{"abcd", "12a4", "-123", "1.5"} {
		_, err := Update(ctx, db, models.SettingsPatch{AdminPin: models.Set(pin)})
		require.Error(t, err, pin)
		assert.True(t, apperror.IsValidation(err), pin)
	}

	s, err := Get(ctx, db)
	require.NoError(t, err)
	assert.False(t, s.HasPin(), "rejected pin must not be written")
}

func TestVerifyPin(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ok, err := VerifyPin(ctx, db, "")
	require.NoError(t, err)
	assert.False(t, ok, "no pin never matches")

	_, err = Update(ctx, db, models.SettingsPatch{AdminPin: models.Set("0042")})
	require.NoError(t, err)

	testCases := []struct {
		candidate string
		want      bool
	}{
		{"0042", true},
		{"42", false},
		{"0042 ", false},
		{"", false},
	}

	for _, tc := range testCases {
		ok, err := VerifyPin(ctx, db, tc.candidate)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "candidate %q", tc.candidate)
	}
}

func TestEnableAdminMode(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	enabled, err := EnableAdminMode(ctx, db, "1234")
	require.NoError(t, err)
	assert.False(t, enabled, "no pin set")

	_, err = Update(ctx, db, models.SettingsPatch{AdminPin: models.Set("1234")})
	require.NoError(t, err)

	enabled, err = EnableAdminMode(ctx, db, "9999")
	require.NoError(t, err)
	assert.False(t, enabled)

	s, err := Get(ctx, db)
	require.NoError(t, err)
	assert.False(t, s.IsAdminMode, "wrong pin must not change state")

	enabled, err = EnableAdminMode(ctx, db, "1234")
	require.NoError(t, err)
	assert.True(t, enabled)

	s, err = Get(ctx, db)
	require.NoError(t, err)
	assert.True(t, s.IsAdminMode)

	_, err = EnableAdminMode(ctx, nil, "1234")
	require.ErrorIs(t, err, ErrDBNil)
}

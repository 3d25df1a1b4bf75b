// Package settings serves the singleton settings row and the admin PIN gate.
package settings

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/boxwatch/boxwatch/internal/config"
	"github.com/boxwatch/boxwatch/internal/db/controller/setting"
	"github.com/boxwatch/boxwatch/internal/db/models"
	"github.com/boxwatch/boxwatch/internal/web/handler"
)

const (
	// Path is the settings route below the API prefix.
	Path = "/settings"
	// VerifyPinPath checks a candidate PIN.
	VerifyPinPath = "/verify-pin"
	// AdminModePath enables admin mode with a PIN.
	AdminModePath = "/admin-mode"
)

// Response is the body returned by GET and PUT.
type Response struct {
	OK       bool                `json:"ok"`
	Settings models.SettingsView `json:"settings"`
}

// PinRequest carries a candidate PIN.
type PinRequest struct {
	Pin string `json:"pin"`
}

// VerifyResponse is the body returned by verify-pin.
type VerifyResponse struct {
	OK    bool `json:"ok"`
	Valid bool `json:"valid"`
}

// AdminModeResponse is the body returned by admin-mode.
type AdminModeResponse struct {
	OK       bool                `json:"ok"`
	Enabled  bool                `json:"enabled"`
	Settings models.SettingsView `json:"settings"`
}

// Service is the settings handler service.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers the settings routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return handler.ErrNilACD
	}

	s.db = db

	app.Route(handler.APIPrefix+Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Put(handler.RouterRootPath, s.Put)
		router.Post(VerifyPinPath, s.VerifyPin)
		router.Post(AdminModePath, s.AdminMode)
	})

	return nil
}

// Get returns the current settings.
func (s *Service) Get(c *fiber.Ctx) error {
	row, err := setting.Get(c.UserContext(), s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(Response{OK: true, Settings: row.View()})
}

// Put merges a partial body into the settings. Keys left out of the body keep their stored value;
// an explicit null follows the per-field merge rules.
func (s *Service) Put(c *fiber.Ctx) error {
	var patch models.SettingsPatch

	// BodyParser cannot tell an absent key from null, so the patch is decoded directly.
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &patch); err != nil {
			return handler.Fail(c, fiber.StatusBadRequest, "invalid body: "+err.Error())
		}
	}

	row, err := setting.Update(c.UserContext(), s.db, patch)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(Response{OK: true, Settings: row.View()})
}

func pin(c *fiber.Ctx) (string, error) {
	var req PinRequest

	if len(c.Body()) == 0 {
		return "", nil
	}

	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}

	return req.Pin, nil
}

// VerifyPin reports whether the body PIN matches the stored one.
func (s *Service) VerifyPin(c *fiber.Ctx) error {
	candidate, err := pin(c)
	if err != nil {
		return handler.FailErr(c, err)
	}

	valid, err := setting.VerifyPin(c.UserContext(), s.db, candidate)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(VerifyResponse{OK: true, Valid: valid})
}

// AdminMode enables admin mode when the body PIN matches. A mismatch is not an error: the response
// carries enabled=false and the unchanged settings.
func (s *Service) AdminMode(c *fiber.Ctx) error {
	candidate, err := pin(c)
	if err != nil {
		return handler.FailErr(c, err)
	}

	ctx := c.UserContext()

	enabled, err := setting.EnableAdminMode(ctx, s.db, candidate)
	if err != nil {
		return handler.FailErr(c, err)
	}

	row, err := setting.Get(ctx, s.db)
	if err != nil {
		return handler.FailErr(c, err)
	}

	return c.JSON(AdminModeResponse{OK: true, Enabled: enabled, Settings: row.View()})
}

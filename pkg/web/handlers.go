package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/juggletracker/pkg/camera"
	"github.com/teslashibe/juggletracker/pkg/hub"
)

// handleStatus returns the shell status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.shell.Status())
}

// handleCalibration returns the loaded calibration record
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	var data map[string]any
	if s.calibration != nil {
		data = s.calibration.Data()
	}
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "calibration not loaded",
		})
	}
	return c.JSON(fiber.Map{
		"path": s.calibration.Path(),
		"data": data,
	})
}

// handleCamera returns the requested camera settings and available presets
func (s *Server) handleCamera(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"config":  s.camera,
		"presets": camera.PresetNames(),
	})
}

// handleStatusWS streams status snapshots, starting with the current one
func (s *Server) handleStatusWS(conn *websocket.Conn) {
	client := hub.NewClient(s.statusHub, conn)
	if data, err := json.Marshal(s.shell.Status()); err == nil {
		client.Prime(hub.NewJSONMessage(data))
	}
	client.Run()
}

// handleCameraWS streams JPEG frames
func (s *Server) handleCameraWS(conn *websocket.Conn) {
	hub.NewClient(s.cameraHub, conn).Run()
}

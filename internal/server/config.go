package server

import (
	"github.com/raysh454/appreviewer/internal/app"
	"github.com/raysh454/appreviewer/internal/logging"
)

type Config struct {
	// ListenAddr overrides AppConfig.ListenAddr when set.
	ListenAddr string
	AppConfig  *app.Config
	Logger     logging.Logger

	// Application, if set, is served instead of one built from AppConfig.
	// The server then does not close it.
	Application *app.Application
}

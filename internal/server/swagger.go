package server

//go:generate swag init -g internal/server/swagger.go -o internal/server/docs

// @title App Reviewer API
// @version 1.0
// @description Upload app source files and run security, code quality and UI/UX analysis on them.
// @contact.name App Reviewer Maintainers
// @contact.url https://github.com/raysh454/appreviewer
// @BasePath /

package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Lawtrack API
// @version 0.1
// @description Dashboard API for tracking amendments to Korean statutes.
// @contact.name Lawtrack Maintainers
// @contact.url https://github.com/raysh454/lawtrack
// @BasePath /

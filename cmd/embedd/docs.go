package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/embedd/docs.go`.
//
// @title           embedd API
// @version         1.0
// @description     HTTP API for sentence embeddings with a lazily loaded model.
//
// @contact.name   embedd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http

// Package docs provides generated OpenAPI documentation.
//
// Colorbook API
//
//	@title			Colorbook API
//	@version		1.0
//	@description	Coloring book batch orchestration: wizard sessions, stage jobs, progress and exports.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/colorbook
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g doc.go -d .,../internal/server/endpoints -o ./swagger --parseDependency --parseInternal

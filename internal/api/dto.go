package api

import "github.com/starford/folio/internal/models"

// ViewResponse is the body of every listing and document route.
type ViewResponse = models.View

// WidgetsResponse is the body of GET /widgets.
type WidgetsResponse = models.Widgets

// RawResponse is the body of GET /raw/{path} when the client asks for JSON.
type RawResponse struct {
	URL     string `json:"url" example:"/raw/2023/01/05/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello" validate:"required"`
}

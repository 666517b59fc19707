package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the REST surface. The redirect route is
// registered last so the static paths win over the {code} wildcard.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "shorten-url",
		Method:        http.MethodPost,
		Path:          "/shorten",
		Summary:       "Create short URL",
		Description:   "Creates a short link for the submitted URL. Re-submitting a known URL returns the existing record.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
	}, urlHandler.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "list-urls",
		Method:      http.MethodGet,
		Path:        "/urls",
		Summary:     "List short URLs",
		Description: "Returns all short links, newest first.",
		Tags:        []string{"URLs"},
	}, urlHandler.List)

	huma.Register(api, huma.Operation{
		OperationID: "delete-url",
		Method:      http.MethodDelete,
		Path:        "/urls/{id}",
		Summary:     "Delete short URL",
		Description: "Removes a short link and purges it from the caches.",
		Tags:        []string{"URLs"},
	}, urlHandler.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL and counts the click off the response path.",
		Tags:        []string{"URLs"},
	}, urlHandler.Redirect)
}

package driver

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/alorle/iptv-player/internal/catalog"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// NewOpenAPIDocument describes every JSON endpoint served under /api.
func NewOpenAPIDocument() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "IPTV Player API",
			Version: APIVersion,
		},
		Paths: openapi3.NewPaths(),
	}

	var (
		typeEnum = make([]interface{}, 0, len(catalog.ContentTypes))
		catEnum  = make([]interface{}, 0, len(catalog.Categories))
	)
	for _, t := range catalog.ContentTypes {
		typeEnum = append(typeEnum, t.String())
	}
	for _, c := range catalog.Categories {
		catEnum = append(catEnum, c.String())
	}

	errorSchema := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())
	entrySchema := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("url", openapi3.NewStringSchema()).
		WithProperty("group", openapi3.NewStringSchema()).
		WithProperty("logo", openapi3.NewStringSchema()).
		WithProperty("tvg_id", openapi3.NewStringSchema()).
		WithProperty("duration", openapi3.NewFloat64Schema()).
		WithProperty("type", openapi3.NewStringSchema().WithEnum(typeEnum...)).
		WithProperty("category", openapi3.NewStringSchema().WithEnum(catEnum...))
	groupSchema := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("offset", openapi3.NewIntegerSchema()).
		WithProperty("total", openapi3.NewIntegerSchema()).
		WithProperty("has_more", openapi3.NewBoolSchema()).
		WithProperty("entries", openapi3.NewArraySchema().WithItems(entrySchema))
	statusSchema := openapi3.NewObjectSchema().
		WithProperty("loaded", openapi3.NewBoolSchema()).
		WithProperty("entries", openapi3.NewIntegerSchema()).
		WithProperty("duplicates", openapi3.NewIntegerSchema()).
		WithProperty("loaded_at", openapi3.NewDateTimeSchema()).
		WithProperty("fetched_at", openapi3.NewDateTimeSchema()).
		WithProperty("stale", openapi3.NewBoolSchema()).
		WithProperty("via_proxy", openapi3.NewBoolSchema())
	snapshotSchema := openapi3.NewObjectSchema().
		WithProperty("session_id", openapi3.NewStringSchema()).
		WithProperty("entry_id", openapi3.NewStringSchema()).
		WithProperty("state", openapi3.NewStringSchema()).
		WithProperty("detected", openapi3.NewStringSchema()).
		WithProperty("strategy", openapi3.NewStringSchema()).
		WithProperty("using_proxy", openapi3.NewBoolSchema()).
		WithProperty("attempts", openapi3.NewIntegerSchema()).
		WithProperty("retry_count", openapi3.NewIntegerSchema()).
		WithProperty("position", openapi3.NewFloat64Schema()).
		WithProperty("duration", openapi3.NewFloat64Schema()).
		WithProperty("last_error", openapi3.NewStringSchema()).
		WithProperty("terminal", openapi3.NewBoolSchema())
	contentSchema := openapi3.NewObjectSchema().
		WithProperty("entry_id", openapi3.NewStringSchema()).
		WithProperty("url", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema())
	entryIDBody := openapi3.NewObjectSchema().WithProperty("entry_id", openapi3.NewStringSchema().WithMinLength(1))
	entryIDBody.Required = []string{"entry_id"}

	jsonResponse := func(description string, schema *openapi3.Schema) *openapi3.Response {
		return openapi3.NewResponse().WithDescription(description).WithJSONSchema(schema)
	}
	errorResponse := func(description string) *openapi3.Response {
		return jsonResponse(description, errorSchema)
	}
	jsonBody := func(schema *openapi3.Schema) *openapi3.RequestBodyRef {
		return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithJSONSchema(schema).WithRequired(true)}
	}
	intParam := func(name, description string) *openapi3.Parameter {
		p := openapi3.NewQueryParameter(name).WithSchema(openapi3.NewIntegerSchema().WithMin(0))
		p.Description = description
		return p
	}
	scopeParams := func(op *openapi3.Operation) {
		op.AddParameter(openapi3.NewQueryParameter("type").WithSchema(openapi3.NewStringSchema().WithEnum(typeEnum...)))
		op.AddParameter(openapi3.NewQueryParameter("category").WithSchema(openapi3.NewStringSchema().WithEnum(catEnum...)))
	}
	operation := func(id, summary string) *openapi3.Operation {
		op := openapi3.NewOperation()
		op.OperationID = id
		op.Summary = summary
		return op
	}

	// Catalog
	op := operation("getCatalogSummary", "Catalog counts and status")
	op.AddResponse(http.StatusOK, jsonResponse("Catalog summary", openapi3.NewObjectSchema().
		WithProperty("status", statusSchema).
		WithProperty("with_logo", openapi3.NewIntegerSchema()).
		WithProperty("groups", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))))
	op.AddResponse(http.StatusServiceUnavailable, errorResponse("Catalog not loaded"))
	doc.AddOperation("/api/catalog/summary", http.MethodGet, op)

	op = operation("refreshCatalog", "Fetch and parse the playlist again")
	op.AddResponse(http.StatusOK, jsonResponse("Catalog status", statusSchema))
	op.AddResponse(http.StatusBadGateway, errorResponse("Playlist could not be loaded"))
	doc.AddOperation("/api/catalog/refresh", http.MethodPost, op)

	op = operation("listEntries", "Search and page catalog entries")
	scopeParams(op)
	op.AddParameter(openapi3.NewQueryParameter("q").WithSchema(openapi3.NewStringSchema()))
	op.AddParameter(intParam("offset", "Index of the first entry"))
	op.AddParameter(intParam("limit", "Maximum number of entries"))
	op.AddResponse(http.StatusOK, jsonResponse("Entry page", openapi3.NewObjectSchema().
		WithProperty("total", openapi3.NewIntegerSchema()).
		WithProperty("offset", openapi3.NewIntegerSchema()).
		WithProperty("has_more", openapi3.NewBoolSchema()).
		WithProperty("entries", openapi3.NewArraySchema().WithItems(entrySchema))))
	op.AddResponse(http.StatusBadRequest, errorResponse("Invalid filter"))
	doc.AddOperation("/api/catalog/entries", http.MethodGet, op)

	op = operation("getEntry", "Look up one entry")
	op.AddParameter(openapi3.NewQueryParameter("id").WithSchema(openapi3.NewStringSchema().WithMinLength(1)).WithRequired(true))
	op.AddResponse(http.StatusOK, jsonResponse("Entry", entrySchema))
	op.AddResponse(http.StatusNotFound, errorResponse("Unknown entry"))
	doc.AddOperation("/api/catalog/entry", http.MethodGet, op)

	op = operation("listGroups", "Groups of a scope, each truncated to a window")
	scopeParams(op)
	op.AddParameter(intParam("window", "Entries shown per group"))
	op.AddResponse(http.StatusOK, jsonResponse("Groups", openapi3.NewArraySchema().WithItems(groupSchema)))
	doc.AddOperation("/api/catalog/groups", http.MethodGet, op)

	op = operation("getGroup", "Page through one group")
	scopeParams(op)
	op.AddParameter(openapi3.NewQueryParameter("name").WithSchema(openapi3.NewStringSchema()).WithRequired(true))
	op.AddParameter(intParam("offset", "Index of the first entry"))
	op.AddParameter(intParam("limit", "Maximum number of entries"))
	op.AddResponse(http.StatusOK, jsonResponse("Group page", groupSchema))
	op.AddResponse(http.StatusNotFound, errorResponse("Unknown group"))
	doc.AddOperation("/api/catalog/group", http.MethodGet, op)

	// Playback
	op = operation("startPlayback", "Play an entry, replacing the active session")
	startBody := openapi3.NewObjectSchema().
		WithProperty("entry_id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("from_beginning", openapi3.NewBoolSchema())
	startBody.Required = []string{"entry_id"}
	op.RequestBody = jsonBody(startBody)
	op.AddResponse(http.StatusCreated, jsonResponse("Session started", snapshotSchema))
	op.AddResponse(http.StatusNotFound, errorResponse("Unknown entry"))
	doc.AddOperation("/api/playback", http.MethodPost, op)

	op = operation("getPlayback", "State of the active session")
	op.AddResponse(http.StatusOK, jsonResponse("Session state", snapshotSchema))
	op.AddResponse(http.StatusNotFound, errorResponse("No active session"))
	doc.AddOperation("/api/playback", http.MethodGet, op)

	op = operation("stopPlayback", "Close the active session")
	op.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Session closed"))
	op.AddResponse(http.StatusNotFound, errorResponse("No active session"))
	doc.AddOperation("/api/playback", http.MethodDelete, op)

	for _, command := range []string{"play", "pause", "toggle", "retry"} {
		op = operation(command+"Playback", "Send "+command+" to the active session")
		op.AddResponse(http.StatusOK, jsonResponse("Session state", snapshotSchema))
		op.AddResponse(http.StatusNotFound, errorResponse("No active session"))
		doc.AddOperation("/api/playback/"+command, http.MethodPost, op)
	}

	op = operation("seekPlayback", "Move to an absolute position")
	seekBody := openapi3.NewObjectSchema().WithProperty("position", openapi3.NewFloat64Schema())
	seekBody.Required = []string{"position"}
	op.RequestBody = jsonBody(seekBody)
	op.AddResponse(http.StatusOK, jsonResponse("Session state", snapshotSchema))
	op.AddResponse(http.StatusNotFound, errorResponse("No active session"))
	doc.AddOperation("/api/playback/seek", http.MethodPost, op)

	op = operation("skipPlayback", "Move relative to the current position")
	op.RequestBody = jsonBody(openapi3.NewObjectSchema().WithProperty("delta", openapi3.NewFloat64Schema()))
	op.AddResponse(http.StatusOK, jsonResponse("Session state", snapshotSchema))
	op.AddResponse(http.StatusNotFound, errorResponse("No active session"))
	doc.AddOperation("/api/playback/skip", http.MethodPost, op)

	op = operation("playbackEvents", "Stream session notifications")
	op.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Server-sent events").
		WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/event-stream"})))
	doc.AddOperation("/api/playback/events", http.MethodGet, op)

	// User data
	op = operation("listFavorites", "Favorites of the profile")
	op.AddResponse(http.StatusOK, jsonResponse("Favorites", openapi3.NewArraySchema().WithItems(
		openapi3.NewObjectSchema().WithProperty("content", contentSchema))))
	op.AddResponse(http.StatusPreconditionFailed, errorResponse("No profile configured"))
	doc.AddOperation("/api/favorites", http.MethodGet, op)

	op = operation("toggleFavorite", "Add or remove a favorite")
	op.RequestBody = jsonBody(entryIDBody)
	op.AddResponse(http.StatusOK, jsonResponse("Favorite state", openapi3.NewObjectSchema().
		WithProperty("entry_id", openapi3.NewStringSchema()).
		WithProperty("favorite", openapi3.NewBoolSchema())))
	op.AddResponse(http.StatusPreconditionFailed, errorResponse("No profile configured"))
	doc.AddOperation("/api/favorites/toggle", http.MethodPost, op)

	op = operation("listHistory", "Recently opened content")
	op.AddParameter(intParam("limit", "Maximum number of items"))
	op.AddResponse(http.StatusOK, jsonResponse("History", openapi3.NewArraySchema().WithItems(
		openapi3.NewObjectSchema().WithProperty("content", contentSchema))))
	doc.AddOperation("/api/history", http.MethodGet, op)

	op = operation("listContinueWatching", "Content with an unfinished saved position")
	op.AddResponse(http.StatusOK, jsonResponse("Progress", openapi3.NewArraySchema().WithItems(
		openapi3.NewObjectSchema().
			WithProperty("content", contentSchema).
			WithProperty("seconds", openapi3.NewFloat64Schema()).
			WithProperty("duration", openapi3.NewFloat64Schema()))))
	doc.AddOperation("/api/continue-watching", http.MethodGet, op)

	op = operation("resetProgress", "Forget the saved position of an entry")
	op.RequestBody = jsonBody(entryIDBody)
	op.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Progress cleared"))
	op.AddResponse(http.StatusNotFound, errorResponse("Unknown entry"))
	doc.AddOperation("/api/progress/reset", http.MethodPost, op)

	// Health
	op = operation("getHealth", "Dependency health")
	component := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("error", openapi3.NewStringSchema())
	health := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("db", component).
		WithProperty("backend", component).
		WithProperty("catalog", component)
	op.AddResponse(http.StatusOK, jsonResponse("Healthy", health))
	op.AddResponse(http.StatusServiceUnavailable, jsonResponse("Degraded", health))
	doc.AddOperation("/api/health", http.MethodGet, op)

	return doc
}

// NewRequestValidator rejects requests that do not match doc before they
// reach the handlers. Errors use the same JSON shape as the handlers.
func NewRequestValidator(doc *openapi3.T) func(http.Handler) http.Handler {
	return nethttpmiddleware.OapiRequestValidatorWithOptions(doc, &nethttpmiddleware.Options{
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			writeError(w, statusCode, message)
		},
	})
}

// NewOpenAPIHandler serves doc as JSON.
func NewOpenAPIHandler(doc *openapi3.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		data, err := json.Marshal(doc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}

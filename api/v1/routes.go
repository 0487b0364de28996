package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /inspector)
	GetWorkerStatus(c *gin.Context)
	// (GET /inspections)
	ListInspections(c *gin.Context, params ListInspectionsParams)
	// (GET /inspections/export)
	ExportInspections(c *gin.Context, params ExportInspectionsParams)
	// (GET /inspections/{id})
	GetInspection(c *gin.Context, id string)
	// (GET /inspections/{id}/icon)
	GetInspectionIcon(c *gin.Context, id string)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

// GetWorkerStatus operation middleware
func (siw *ServerInterfaceWrapper) GetWorkerStatus(c *gin.Context) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.GetWorkerStatus(c)
}

// ListInspections operation middleware
func (siw *ServerInterfaceWrapper) ListInspections(c *gin.Context) {
	var err error

	// Parameter object where we will unmarshal all parameters from the context
	var params ListInspectionsParams

	// ------------- Optional query parameter "outcome" -------------

	err = runtime.BindQueryParameter("form", true, false, "outcome", c.Request.URL.Query(), &params.Outcome)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter outcome: %w", err), http.StatusBadRequest)
		return
	}

	// ------------- Optional query parameter "connection" -------------

	err = runtime.BindQueryParameter("form", true, false, "connection", c.Request.URL.Query(), &params.Connection)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter connection: %w", err), http.StatusBadRequest)
		return
	}

	// ------------- Optional query parameter "filter" -------------

	err = runtime.BindQueryParameter("form", true, false, "filter", c.Request.URL.Query(), &params.Filter)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter filter: %w", err), http.StatusBadRequest)
		return
	}

	// ------------- Optional query parameter "limit" -------------

	err = runtime.BindQueryParameter("form", true, false, "limit", c.Request.URL.Query(), &params.Limit)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter limit: %w", err), http.StatusBadRequest)
		return
	}

	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.ListInspections(c, params)
}

// ExportInspections operation middleware
func (siw *ServerInterfaceWrapper) ExportInspections(c *gin.Context) {
	var err error

	var params ExportInspectionsParams

	err = runtime.BindQueryParameter("form", true, false, "outcome", c.Request.URL.Query(), &params.Outcome)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter outcome: %w", err), http.StatusBadRequest)
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "connection", c.Request.URL.Query(), &params.Connection)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter connection: %w", err), http.StatusBadRequest)
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "filter", c.Request.URL.Query(), &params.Filter)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter filter: %w", err), http.StatusBadRequest)
		return
	}

	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.ExportInspections(c, params)
}

// GetInspection operation middleware
func (siw *ServerInterfaceWrapper) GetInspection(c *gin.Context) {
	var err error

	// ------------- Path parameter "id" -------------
	var id string

	err = runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter id: %w", err), http.StatusBadRequest)
		return
	}

	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.GetInspection(c, id)
}

// GetInspectionIcon operation middleware
func (siw *ServerInterfaceWrapper) GetInspectionIcon(c *gin.Context) {
	var err error

	var id string

	err = runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter id: %w", err), http.StatusBadRequest)
		return
	}

	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}

	siw.Handler.GetInspectionIcon(c, id)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, Error{Error: err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/inspector", wrapper.GetWorkerStatus)
	router.GET(options.BaseURL+"/inspections", wrapper.ListInspections)
	router.GET(options.BaseURL+"/inspections/export", wrapper.ExportInspections)
	router.GET(options.BaseURL+"/inspections/:id", wrapper.GetInspection)
	router.GET(options.BaseURL+"/inspections/:id/icon", wrapper.GetInspectionIcon)
}

package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/document"
)

type documentApi struct {
	svc  document.Service
	conf *core.Config
}

func registerDocumentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc document.Service, conf *core.Config) {
	api := documentApi{
		svc:  svc,
		conf: conf,
	}

	dg := g.Group("/documents", jwt)

	dg.POST("", api.upload)
	dg.GET("", api.query)

	og := dg.Group("/:id", api.ownedDocumentMiddleware())
	og.GET("", api.retrieve)
	og.DELETE("", api.destroy)
}

// Handlers

func (api *documentApi) upload(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "a \"file\" form field is required")
	}
	if fileHdr.Size > api.conf.MaxUploadSize {
		return echo.NewHTTPError(
			http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte upload limit", api.conf.MaxUploadSize),
		)
	}

	file, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	doc, err := api.svc.Upload(
		ctx.Request().Context(),
		claims.Subject,
		fileHdr.Filename,
		fileHdr.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		return errors.Wrap(err, "uploading document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *documentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	docs, err := api.svc.Query(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return ctx.JSON(http.StatusOK, docs)
}

func (api *documentApi) retrieve(ctx echo.Context) error {
	doc, ok := ctx.Get("object").(document.Document)
	if !ok {
		return errors.New("document object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) destroy(ctx echo.Context) error {
	doc, ok := ctx.Get("object").(document.Document)
	if !ok {
		return errors.New("document object not found in echo.Context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), doc); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ownedDocumentMiddleware loads the document and hides it from anyone but its owner.
func (api *documentApi) ownedDocumentMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			doc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == document.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding document by ID")
			}
			if doc.OwnerID != claims.Subject {
				return errHttpNotFound
			}
			ctx.Set("object", doc)
			return next(ctx)
		}
	}
}

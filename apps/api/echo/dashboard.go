package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/document"
)

const dashboardRecentChats = 5

type dashboardApi struct {
	crsSvc  course.Service
	docSvc  document.Service
	chatSvc chat.Service
}

// DashboardResponse is the learning summary plus the user's uploaded
// documents and latest assistant exchanges.
type DashboardResponse struct {
	course.Dashboard
	DocumentCount      int                `json:"document_count"`
	RecentInteractions []chat.Interaction `json:"recent_interactions"`
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, crsSvc course.Service, docSvc document.Service, chatSvc chat.Service) {
	api := dashboardApi{crsSvc: crsSvc, docSvc: docSvc, chatSvc: chatSvc}
	g.GET("/dashboard", api.retrieve, jwt)
}

func (api *dashboardApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	reqCtx := ctx.Request().Context()

	dash, err := api.crsSvc.GetDashboard(reqCtx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	docs, err := api.docSvc.Query(reqCtx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "counting documents")
	}
	interactions, err := api.chatSvc.History(reqCtx, claims.Subject, "")
	if err != nil {
		return errors.Wrap(err, "fetching recent interactions")
	}
	if len(interactions) > dashboardRecentChats {
		interactions = interactions[:dashboardRecentChats]
	}
	if interactions == nil {
		interactions = []chat.Interaction{}
	}

	return ctx.JSON(http.StatusOK, DashboardResponse{
		Dashboard:          dash,
		DocumentCount:      len(docs),
		RecentInteractions: interactions,
	})
}

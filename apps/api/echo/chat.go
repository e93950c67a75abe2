package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/chat"
)

type chatApi struct {
	svc      chat.Service
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc chat.Service, validate *validator.Validate) {
	api := chatApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/chat", jwt)

	cg.POST("", api.ask)
	cg.GET("/history", api.history)
	cg.POST("/feedback", api.submitFeedback)
}

// Handlers

func (api *chatApi) ask(ctx echo.Context) error {
	var data chat.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	answer, err := api.svc.Ask(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		// retrieval failures degrade inside the service; an error here means
		// the assistant itself could not answer
		return echo.NewHTTPError(http.StatusBadGateway, "the assistant is unavailable, try again later").SetInternal(err)
	}
	return ctx.JSON(http.StatusOK, answer)
}

func (api *chatApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	interactions, err := api.svc.History(ctx.Request().Context(), claims.Subject, ctx.QueryParam("session_id"))
	if err != nil {
		return errors.Wrap(err, "querying chat history")
	}
	if interactions == nil {
		interactions = []chat.Interaction{}
	}
	return ctx.JSON(http.StatusOK, interactions)
}

func (api *chatApi) submitFeedback(ctx echo.Context) error {
	var data chat.NewFeedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	fb, err := api.svc.SubmitFeedback(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}

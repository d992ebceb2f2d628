package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/webpush"
)

type pushApi struct {
	svc *webpush.Service
}

func registerPushAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *webpush.Service) {
	api := pushApi{svc: svc}

	pg := g.Group("/push", jwt)
	pg.POST("/subscriptions", api.subscribe)
	pg.GET("/subscriptions", api.querySubscriptions)
	pg.DELETE("/subscriptions", api.unsubscribe)
	pg.PUT("/settings", api.updateSettings)
	pg.GET("/logs", api.queryLogs)
	pg.POST("/test", api.sendTest)
}

// Handlers

func (api *pushApi) subscribe(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data webpush.NewSubscription
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubscription")
	}
	sub, created, err := api.svc.Subscribe(ctx.Request().Context(), claims.UserID, data)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, sub)
}

func (api *pushApi) querySubscriptions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	subs, err := api.svc.Subscriptions(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return errors.Wrap(err, "querying subscriptions")
	}
	if subs == nil {
		subs = []webpush.Subscription{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *pushApi) unsubscribe(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	endpoint := ctx.QueryParam("endpoint")
	if endpoint == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "endpoint", Error: "endpoint is required"})
	}
	existed, err := api.svc.Unsubscribe(ctx.Request().Context(), claims.UserID, endpoint)
	if err != nil {
		return errors.Wrap(err, "unsubscribing")
	}
	if !existed {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *pushApi) updateSettings(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data webpush.UpdateSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSettings")
	}
	sub, err := api.svc.UpdateSettings(ctx.Request().Context(), claims.UserID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *pushApi) queryLogs(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	logs, err := api.svc.Logs(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return errors.Wrap(err, "querying notification logs")
	}
	if logs == nil {
		logs = []webpush.NotificationLog{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

// sendTest pushes a test notification to the caller's own subscriptions.
func (api *pushApi) sendTest(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	report := api.svc.Dispatch(
		ctx.Request().Context(), claims.UserID,
		"テスト通知", "プッシュ通知は正常に動作しています。", "/", webpush.CategoryTest)
	return ctx.JSON(http.StatusOK, report)
}

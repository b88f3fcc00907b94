package handler

import (
	"log"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ServerOptions はechoサーバーの設定です
type ServerOptions struct {
	ServiceName   string
	EnableTracing bool
	CORSOrigins   []string
}

// NewServer はミドルウェアとルートを設定したechoサーバーを作成します
func NewServer(h *Handler, tokens TokenValidator, users UserLookup, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if opts.EnableTracing {
		// リクエストごとにX-Rayのセグメントを作成する
		e.Use(echo.WrapMiddleware(func(next http.Handler) http.Handler {
			return xray.Handler(xray.NewFixedSegmentNamer(opts.ServiceName), next)
		}))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("request_id=%s method=%s uri=%s status=%d latency=%v", v.RequestID, v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	Route(e, h, tokens, users)
	return e
}

// Route はAPIのルートを登録します
// 認証が必要なルートにはルート単位でミドルウェアを指定します
func Route(e *echo.Echo, h *Handler, tokens TokenValidator, users UserLookup) {
	authn := Authenticate(tokens, users)

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/menu", h.Menu)

	api.POST("/auth/login", h.Login)
	api.POST("/auth/register", h.Register)
	api.GET("/auth/me", h.Me, authn)

	api.GET("/reservations/available-slots", h.AvailableSlots)
	api.GET("/reservations/user", h.ListMyReservations, authn)
	api.GET("/reservations", h.ListReservations, authn, RequireAdmin)
	api.POST("/reservations", h.CreateReservation, authn)
	api.GET("/reservations/:id", h.GetReservation, authn)
	api.PUT("/reservations/:id", h.UpdateReservation, authn)
	api.DELETE("/reservations/:id", h.DeleteReservation, authn)
	api.POST("/reservations/:id/cancel", h.CancelReservation, authn)

	api.GET("/notifications", h.ListNotifications, authn)
	api.PUT("/notifications/:id/read", h.MarkNotificationAsRead, authn)

	api.GET("/users", h.ListUsers, authn, RequireAdmin)
	api.POST("/users", h.CreateUser, authn, RequireAdmin)
	api.GET("/users/:id", h.GetUser, authn, RequireAdmin)
	api.PUT("/users/:id", h.UpdateUser, authn, RequireAdmin)
	api.DELETE("/users/:id", h.DeleteUser, authn, RequireAdmin)
}

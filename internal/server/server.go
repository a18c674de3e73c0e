package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/mdouchement/itemtrack/internal/server/gate"
	"github.com/mdouchement/itemtrack/internal/server/middlewares"
	"github.com/mdouchement/itemtrack/internal/server/service"
	"github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/sirupsen/logrus"
)

// A Controller is an Iversion Of Control pattern used to init the server package.
type Controller struct {
	Version           string
	Database          database.Client
	Logger            *logrus.Logger
	NoRegistration    bool
	AdminRegistration bool
	// PagesPath is the directory of the HTML pages.
	PagesPath string
	// Session params
	SessionSecret []byte
	SessionTTL    time.Duration
	Cookie        session.CookieConfig
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true

	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())
	engine.Use(middleware.BodyLimit("1M"))

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
		Output: ctrl.Logger.Writer(),
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler(ctrl.Logger)

	////////////
	// Router //
	////////////

	sessions := session.NewManager(ctrl.Database, ctrl.SessionSecret, ctrl.SessionTTL)

	authenticate := middlewares.SessionWithConfig(middlewares.SessionConfig{
		Manager: sessions,
		Cookie:  ctrl.Cookie,
		Logger:  ctrl.Logger,
	})
	identify := middlewares.SessionWithConfig(middlewares.SessionConfig{
		Manager:  sessions,
		Cookie:   ctrl.Cookie,
		Logger:   ctrl.Logger,
		Optional: true,
	})

	api := engine.Group("/api")
	restricted := api.Group("", authenticate)

	// generic handlers
	//
	api.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"version": ctrl.Version,
		})
	})

	//
	// auth handlers
	//
	auth := &auth{
		db:       ctrl.Database,
		sessions: sessions,
		cookie:   ctrl.Cookie,
		logger:   ctrl.Logger,
		users:    service.NewUser(ctrl.Database, sessions, ctrl.AdminRegistration),
	}
	if !ctrl.NoRegistration {
		api.POST("/auth/sign-up", auth.Register)
	}
	api.POST("/auth/sign-in", auth.Login)
	api.POST("/auth/sign-out", auth.Logout, identify)
	api.GET("/auth/me", auth.Me, identify)

	//
	// session handlers
	//
	session := &sess{
		db:       ctrl.Database,
		sessions: sessions,
	}
	restricted.GET("/sessions", session.List)
	restricted.DELETE("/sessions/:id", session.Delete)

	//
	// item handlers
	//
	item := &item{
		items: service.NewItem(ctrl.Database),
	}
	restricted.GET("/items", item.List)
	restricted.POST("/items", item.Create)
	restricted.GET("/items/:id", item.Show)
	restricted.PUT("/items/:id", item.Update)
	restricted.DELETE("/items/:id", item.Delete)

	//
	// page handlers
	//
	rules := gate.DefaultRules()
	pages := engine.Group("", identify, middlewares.Gate(rules))
	page := &page{
		path: ctrl.PagesPath,
	}
	pages.GET("/", page.Root)
	for _, prefix := range rules.Guarded() {
		pages.GET(prefix, page.Show)
		pages.GET(prefix+"/*", page.Show)
	}

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] || route.Method == echo.RouteNotFound {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	return middlewares.CurrentUser(c)
}

func currentSession(c echo.Context) *model.Session {
	return middlewares.CurrentSession(c)
}

func params(c echo.Context) service.Params {
	return service.Params{
		UserAgent: c.Request().UserAgent(),
		Caller:    currentUser(c),
		Session:   currentSession(c),
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/incubrix/cms/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	System      *SystemHandler
	Assets      *AssetsHandler
	Feeds       *FeedsHandler
	Settings    *SettingsHandler
	PublicFeeds *PublicFeedsHandler
}

// Register mounts every route on app. Static paths are registered before
// the parameterized routes they would otherwise collide with.
func Register(app *fiber.App, h Handlers) {
	app.Get("/health", h.System.Health)
	app.Get("/robots.txt", h.System.Robots)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	feedHeaders := middleware.FeedHeaders()
	app.Get("/rss", feedHeaders, h.Feeds.GlobalXML)
	app.Get("/rss.xml", feedHeaders, h.Feeds.GlobalXML)
	app.Get("/feed.xml", feedHeaders, h.Feeds.GlobalXML)
	app.Get("/feed.json", feedHeaders, h.Feeds.GlobalJSON)
	app.Get("/feeds/:slug", feedHeaders, h.Feeds.Public)

	api := app.Group("/api")

	rss := api.Group("/rss")
	rss.Get("/feed", feedHeaders, h.Feeds.Global)
	rss.Get("/folder/:folderId/feed", feedHeaders, h.Feeds.Folder)
	rss.Get("/preview", h.Feeds.Preview)
	rss.Get("/settings", h.Settings.Get)
	rss.Put("/settings", h.Settings.Update)
	rss.Get("/folder/:folderId/settings", h.Settings.GetFolder)
	rss.Put("/folder/:folderId/settings", h.Settings.UpdateFolder)
	rss.Get("/feeds", h.PublicFeeds.List)
	rss.Post("/feeds", h.PublicFeeds.Create)
	rss.Get("/feeds/:feedId", h.PublicFeeds.Get)
	rss.Put("/feeds/:feedId", h.PublicFeeds.Update)
	rss.Delete("/feeds/:feedId", h.PublicFeeds.Delete)

	folders := api.Group("/folders")
	folders.Post("/", h.Assets.CreateFolder)
	folders.Delete("/:id", h.Assets.DeleteFolder)

	assets := api.Group("/assets")
	assets.Post("/upload", h.Assets.Upload)
	assets.Get("/", h.Assets.List)
	assets.Get("/stats", h.Assets.Stats)
	assets.Get("/export/csv", h.Assets.ExportCSV)
	assets.Delete("/clear-all", h.Assets.ClearAll)
	assets.Get("/breadcrumb/:id", h.Assets.Breadcrumb)
	assets.Get("/file/:id", h.Assets.Content)
	assets.Get("/:id/preview", h.Assets.Preview)
	assets.Put("/:id/rename", h.Assets.Rename)
	assets.Put("/:id/star", h.Assets.Star)
	assets.Put("/:id/share", h.Assets.Share)
	assets.Put("/:id/description", h.Assets.Description)
	assets.Put("/:id/tags", h.Assets.Tags)
	assets.Put("/:id/move", h.Assets.Move)
	assets.Put("/:id/rss", h.Assets.Syndication)
	assets.Post("/:id/duplicate", h.Assets.Duplicate)
	assets.Get("/:id", h.Assets.Get)
	assets.Delete("/:id", h.Assets.Delete)
}

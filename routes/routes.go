package routes

import (
	"marketplace-service/controllers"
	"marketplace-service/middleware"

	"github.com/gin-gonic/gin"
)

const (
	roleSeller = "seller"
	roleAdmin  = "admin"
)

// Controllers groups every handler set mounted under /api.
type Controllers struct {
	Users         *controllers.UserController
	Catalog       *controllers.CatalogController
	Products      *controllers.ProductController
	Orders        *controllers.OrderController
	Revenue       *controllers.RevenueController
	Homepage      *controllers.HomepageController
	Verification  *controllers.VerificationController
	Uploads       *controllers.UploadController
	ARModels      *controllers.ARModelController
	Notifications *controllers.NotificationController
	Health        *controllers.HealthController
}

// RegisterRoutes sets up all marketplace routes.
func RegisterRoutes(r *gin.Engine, c Controllers, tokens middleware.TokenValidator) {
	r.GET("/health", c.Health.Health)

	api := r.Group("/api")
	authed := middleware.AuthMiddleware(tokens)
	adminOnly := middleware.RequireRoles(roleAdmin)
	sellerOrAdmin := middleware.RequireRoles(roleSeller, roleAdmin)

	registerUserRoutes(api, c.Users, authed, adminOnly)
	registerCatalogRoutes(api, c.Catalog, authed, adminOnly, sellerOrAdmin)
	registerProductRoutes(api, c.Products, authed, sellerOrAdmin)
	registerOrderRoutes(api, c.Orders, authed, adminOnly)
	registerSellerRoutes(api, c, authed, adminOnly, sellerOrAdmin)
	registerHomepageRoutes(api, c.Homepage, authed, adminOnly)
	registerBrandVerificationRoutes(api, c.Verification, authed, adminOnly)
	registerAssetRoutes(api, c.Uploads, c.ARModels, authed, sellerOrAdmin)

	notifications := api.Group("/notifications", authed)
	notifications.GET("", c.Notifications.ListNotifications)
	notifications.PUT("/read-all", c.Notifications.MarkAllRead)
	notifications.PUT("/:id/read", c.Notifications.MarkRead)
}

func registerUserRoutes(api *gin.RouterGroup, uc *controllers.UserController, authed, adminOnly gin.HandlerFunc) {
	users := api.Group("/users")
	users.POST("/register", uc.Register)
	users.POST("/login", uc.Login)

	me := users.Group("", authed)
	me.GET("/profile", uc.GetProfile)
	me.PUT("/profile", uc.UpdateProfile)
	me.PUT("/password", uc.ChangePassword)

	admin := api.Group("/admin/users", authed, adminOnly)
	admin.GET("", uc.ListUsers)
	admin.PUT("/:id/role", uc.UpdateUserRole)
}

func registerCatalogRoutes(api *gin.RouterGroup, cc *controllers.CatalogController, authed, adminOnly, sellerOrAdmin gin.HandlerFunc) {
	categories := api.Group("/categories")
	categories.GET("", cc.ListCategories)
	categories.GET("/:id", cc.GetCategory)
	categories.POST("", authed, adminOnly, cc.CreateCategory)
	categories.PUT("/:id", authed, adminOnly, cc.UpdateCategory)
	categories.DELETE("/:id", authed, adminOnly, cc.DeleteCategory)

	brands := api.Group("/brands")
	brands.GET("", cc.ListBrands)
	brands.GET("/:id", cc.GetBrand)
	brands.POST("", authed, sellerOrAdmin, cc.CreateBrand)
	brands.PUT("/:id", authed, sellerOrAdmin, cc.UpdateBrand)
	brands.DELETE("/:id", authed, adminOnly, cc.DeleteBrand)
}

func registerProductRoutes(api *gin.RouterGroup, pc *controllers.ProductController, authed, sellerOrAdmin gin.HandlerFunc) {
	products := api.Group("/products")
	products.GET("", pc.ListProducts)
	products.GET("/:id", pc.GetProduct)
	products.POST("", authed, sellerOrAdmin, pc.CreateProduct)
	products.PUT("/:id", authed, sellerOrAdmin, pc.UpdateProduct)
	products.DELETE("/:id", authed, sellerOrAdmin, pc.DeleteProduct)
	products.POST("/:id/reviews", authed, pc.AddReview)
}

func registerOrderRoutes(api *gin.RouterGroup, oc *controllers.OrderController, authed, adminOnly gin.HandlerFunc) {
	orders := api.Group("/orders", authed)
	orders.POST("", oc.CreateOrder)
	orders.GET("/mine", oc.ListMyOrders)
	orders.GET("/:id", oc.GetOrder)
	orders.PUT("/:id/pay", oc.MarkOrderPaid)
	orders.PUT("/:id/cancel", oc.CancelMyOrder)

	orders.GET("", adminOnly, oc.ListOrders)
	orders.PUT("/:id/status", adminOnly, oc.UpdateOrderStatus)
}

// registerSellerRoutes mounts the seller dashboard and the seller onboarding queue.
func registerSellerRoutes(api *gin.RouterGroup, c Controllers, authed, adminOnly, sellerOrAdmin gin.HandlerFunc) {
	sellers := api.Group("/sellers", authed)
	sellers.POST("/apply", c.Verification.SubmitSellerApplication)
	sellers.GET("/applications/mine", c.Verification.GetMySellerApplications)
	sellers.GET("/applications/:id", c.Verification.GetSellerApplication)

	dashboard := sellers.Group("", sellerOrAdmin)
	dashboard.GET("/orders", c.Orders.ListSellerOrders)
	dashboard.PUT("/orders/:id/status", c.Orders.UpdateSellerItemStatus)
	dashboard.GET("/revenue", c.Revenue.GetMyRevenue)
	dashboard.GET("/:id/revenue", c.Revenue.GetSellerRevenue)

	admin := api.Group("/admin/seller-applications", authed, adminOnly)
	admin.GET("", c.Verification.ListSellerApplications)
	admin.PUT("/:id/review", c.Verification.ReviewSellerApplication)
}

func registerHomepageRoutes(api *gin.RouterGroup, hc *controllers.HomepageController, authed, adminOnly gin.HandlerFunc) {
	sections := api.Group("/homepage/sections")
	sections.GET("", hc.ListActiveSections)

	admin := sections.Group("", authed, adminOnly)
	admin.GET("/all", hc.ListSections)
	admin.PUT("/reorder", hc.ReorderSections)
	admin.POST("", hc.CreateSection)
	admin.GET("/:id", hc.GetSection)
	admin.PUT("/:id", hc.UpdateSection)
	admin.DELETE("/:id", hc.DeleteSection)
}

func registerBrandVerificationRoutes(api *gin.RouterGroup, vc *controllers.VerificationController, authed, adminOnly gin.HandlerFunc) {
	verification := api.Group("/brand-verification", authed)
	verification.POST("", middleware.RequireRoles(roleSeller), vc.SubmitBrandVerification)
	verification.GET("/mine", vc.GetMyBrandVerifications)
	verification.GET("/:id", vc.GetBrandVerification)

	verification.GET("", adminOnly, vc.ListBrandVerifications)
	verification.PUT("/:id/review", adminOnly, vc.ReviewBrandVerification)
}

func registerAssetRoutes(api *gin.RouterGroup, uc *controllers.UploadController, ac *controllers.ARModelController, authed, sellerOrAdmin gin.HandlerFunc) {
	upload := api.Group("/upload", authed)
	upload.POST("/images", sellerOrAdmin, uc.UploadImages)
	upload.POST("/documents", uc.UploadDocuments)
	upload.POST("/presign", uc.PresignUpload)
	upload.DELETE("", uc.DeleteAsset)

	models := api.Group("/models")
	models.GET("/file/*key", ac.ServeModel)
	models.GET("/products/:id", ac.ListModels)
	models.POST("/products/:id/:platform", authed, sellerOrAdmin, ac.UploadModel)
	models.DELETE("/products/:id/:platform", authed, sellerOrAdmin, ac.DeleteModel)
}

package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"backend/internal/cart"
	"backend/internal/catalog"
	"backend/internal/checkout"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/payments"
	"backend/internal/stock"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureVariantIndexes(db); err != nil {
		log.Printf("variant index warning: %v", err)
	}
	if err := database.EnsureCartIndexes(db); err != nil {
		log.Printf("cart index warning: %v", err)
	}
	if err := database.EnsurePaymentIndexes(db); err != nil {
		log.Printf("payment index warning: %v", err)
	}
	if err := database.EnsureCouponIndexes(db); err != nil {
		log.Printf("coupon index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}

	resolver := catalog.NewResolver(catalog.NewMongoStore(db))
	cartService := cart.NewService(db, resolver)

	provider := payments.NewStripeProvider(config.AppEnv.StripeSecretKey)
	ledger := stock.NewMongoLedger(db)
	checkoutService := checkout.NewService(
		checkout.NewMongoStore(db, resolver),
		provider,
		ledger,
		config.AppEnv.AppURL,
	)

	r := gin.Default()

	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))
	r.POST("/coupons/validate", handlers.ValidateCoupon(checkoutService))
	r.POST("/checkout/success", handlers.CheckoutSuccess(checkoutService, config.AppEnv.ProviderTimeout))

	user := r.Group("/")
	user.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		user.GET("/cart", handlers.GetCart(db, cartService))
		user.POST("/cart/sync", handlers.SyncCart(db, cartService))
		user.PUT("/cart/items", handlers.UpdateCartItem(db, cartService))
		user.DELETE("/cart", handlers.ClearCart(db, cartService))

		user.POST("/checkout/session", handlers.CreateCheckoutSession(checkoutService, config.AppEnv.ProviderTimeout))

		user.POST("/orders", handlers.PlaceOrder(checkoutService))
		user.GET("/orders", handlers.GetOrders(db))

		user.GET("/user/addresses", handlers.GetAddresses(db))
		user.POST("/user/addresses", handlers.CreateAddress(db))
		user.PUT("/user/addresses/:id", handlers.UpdateAddress(db))
		user.DELETE("/user/addresses/:id", handlers.DeleteAddress(db))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(config.AppEnv.JWTSecret))
	{
		admin.GET("/me", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})

		admin.GET("/products", handlers.GetAllProducts(db))
		admin.POST("/products", handlers.CreateProduct(db))
		admin.PUT("/products/:id", handlers.UpdateProduct(db))
		admin.DELETE("/products/:id", handlers.DeleteProduct(db))
		admin.POST("/products/:id/variants", handlers.CreateVariant(db))
		admin.PUT("/variants/:id", handlers.UpdateVariant(db))

		admin.GET("/orders", handlers.GetAllOrders(db))
		admin.PUT("/orders/:id/status", handlers.UpdateOrderStatus(db))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(db))

		admin.GET("/coupons", handlers.GetCoupons(db))
		admin.POST("/coupons", handlers.CreateCoupon(db))
		admin.DELETE("/coupons/:id", handlers.DeleteCoupon(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/cart"
)

/* =========================
   REQUEST DTOs
========================= */

type syncCartRequest struct {
	Items []cart.ItemDTO `json:"items"`
}

type updateCartItemRequest struct {
	ProductVariantID string `json:"productVariantId" binding:"required"`
	Quantity         int    `json:"quantity"`
}

/* =========================
   CART
========================= */

func GetCart(db *mongo.Database, svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		items, err := svc.Get(ctx, identity.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// SyncCart is the login-time merge endpoint. An empty item list means
// fetch-only; the merged cart is returned either way.
func SyncCart(db *mongo.Database, svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/sync"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req syncCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		items, err := svc.Sync(ctx, identity.ID, req.Items)
		if err != nil {
			if errors.Is(err, cart.ErrUnauthorized) {
				respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "cart sync failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func UpdateCartItem(db *mongo.Database, svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /cart/items"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.UpdateItem(ctx, identity.ID, req.ProductVariantID, req.Quantity); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart updated"})
	}
}

func ClearCart(db *mongo.Database, svc *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /cart"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := svc.Clear(ctx, identity.ID); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/checkout"
	"backend/internal/models"
)

type placeOrderRequest struct {
	Items []checkout.CartItemInput `json:"items" binding:"required"`
}

type orderResponse struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

/* =========================
   PLACE ORDER (direct, non-card)
========================= */

func PlaceOrder(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		result, err := svc.PlaceOrder(ctx, identity, req.Items)
		if err != nil {
			var stockErr *checkout.OutOfStockError
			switch {
			case errors.As(err, &stockErr):
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "not enough stock",
					"variantId": stockErr.VariantID,
					"requested": stockErr.Requested,
				})
			case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrNoValidItems):
				respondWithError(c, http.StatusBadRequest, route, "no valid items found")
			default:
				respondWithError(c, http.StatusInternalServerError, route, "db error")
			}
			return
		}

		c.JSON(http.StatusCreated, gin.H{"orderId": result.OrderID, "message": "order created"})
	}
}

/* =========================
   ORDER HISTORY
========================= */

func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("orders").Find(
			ctx,
			bson.M{"userId": identity.ID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		var orders []models.Order
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		responses, err := attachOrderItems(ctx, db, orders)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, responses)
	}
}

func attachOrderItems(ctx context.Context, db *mongo.Database, orders []models.Order) ([]orderResponse, error) {
	responses := make([]orderResponse, 0, len(orders))
	if len(orders) == 0 {
		return responses, nil
	}

	orderIDs := make([]string, 0, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.ID)
	}

	cursor, err := db.Collection("order_items").Find(ctx, bson.M{"orderId": bson.M{"$in": orderIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	itemsByOrder := make(map[string][]models.OrderItem, len(orders))
	for cursor.Next(ctx) {
		var item models.OrderItem
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items := itemsByOrder[order.ID]
		if items == nil {
			items = []models.OrderItem{}
		}
		responses = append(responses, orderResponse{Order: order, Items: items})
	}
	return responses, nil
}

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type createCouponRequest struct {
	Code          string     `json:"code" binding:"required"`
	DiscountType  string     `json:"discountType" binding:"required"`
	DiscountValue float64    `json:"discountValue" binding:"required"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	MaxUsage      int        `json:"maxUsage" binding:"required,min=1"`
}

func CreateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/coupons"
		defer handlePanic(c, route)

		var req createCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if req.DiscountType != models.DiscountTypePercentage && req.DiscountType != models.DiscountTypeFixed {
			respondWithError(c, http.StatusBadRequest, route, "invalid discount type")
			return
		}
		if req.DiscountValue <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid discount value")
			return
		}
		if req.DiscountType == models.DiscountTypePercentage && req.DiscountValue > 100 {
			respondWithError(c, http.StatusBadRequest, route, "percentage cannot exceed 100")
			return
		}

		coupon := models.Coupon{
			ID:            uuid.NewString(),
			Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
			DiscountType:  req.DiscountType,
			DiscountValue: req.DiscountValue,
			ExpiresAt:     req.ExpiresAt,
			MaxUsage:      req.MaxUsage,
			UsedCount:     0,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("coupons").InsertOne(ctx, coupon); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "coupon code already exists")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, coupon)
	}
}

func GetCoupons(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/coupons"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("coupons").Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		coupons := []models.Coupon{}
		if err := cursor.All(ctx, &coupons); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"coupons": coupons})
	}
}

func DeleteCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/coupons/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("coupons").DeleteOne(ctx, bson.M{"_id": c.Param("id")})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "coupon not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "coupon deleted"})
	}
}

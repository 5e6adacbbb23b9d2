package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type addressRequest struct {
	Type       string `json:"type" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state" binding:"required"`
	Country    string `json:"country" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	IsDefault  bool   `json:"isDefault"`
}

/* =========================
   ADDRESS BOOK
========================= */

// GetAddresses lists only profile-visible addresses. Checkout snapshots
// stay out of the address book.
func GetAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/addresses"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("addresses").Find(
			ctx,
			bson.M{"userId": identity.ID, "isProfileVisible": true},
			options.Find().SetSort(bson.D{{Key: "isDefault", Value: -1}, {Key: "_id", Value: -1}}),
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		addresses := []models.Address{}
		if err := cursor.All(ctx, &addresses); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"addresses": addresses})
	}
}

func CreateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/addresses"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if req.Type != models.AddressTypeShipping && req.Type != models.AddressTypeBilling {
			respondWithError(c, http.StatusBadRequest, route, "invalid address type")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if req.IsDefault {
			if err := clearDefaultFlag(ctx, db, identity.ID, req.Type); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		address := models.Address{
			ID:               uuid.NewString(),
			UserID:           identity.ID,
			Type:             req.Type,
			Line1:            req.Line1,
			Line2:            req.Line2,
			City:             req.City,
			State:            req.State,
			Country:          req.Country,
			PostalCode:       req.PostalCode,
			IsDefault:        req.IsDefault,
			IsProfileVisible: true,
		}

		if _, err := db.Collection("addresses").InsertOne(ctx, address); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, address)
	}
}

func UpdateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/addresses/:id"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if req.Type != models.AddressTypeShipping && req.Type != models.AddressTypeBilling {
			respondWithError(c, http.StatusBadRequest, route, "invalid address type")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if req.IsDefault {
			if err := clearDefaultFlag(ctx, db, identity.ID, req.Type); err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}

		// Snapshots are immutable, so the filter insists on isProfileVisible.
		filter := bson.M{
			"_id":              c.Param("id"),
			"userId":           identity.ID,
			"isProfileVisible": true,
		}
		update := bson.M{"$set": bson.M{
			"type":       req.Type,
			"line1":      req.Line1,
			"line2":      req.Line2,
			"city":       req.City,
			"state":      req.State,
			"country":    req.Country,
			"postalCode": req.PostalCode,
			"isDefault":  req.IsDefault,
		}}

		result, err := db.Collection("addresses").UpdateOne(ctx, filter, update)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "address updated"})
	}
}

func DeleteAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/addresses/:id"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{
			"_id":              c.Param("id"),
			"userId":           identity.ID,
			"isProfileVisible": true,
		}

		result, err := db.Collection("addresses").DeleteOne(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
	}
}

func clearDefaultFlag(ctx context.Context, db *mongo.Database, userID, addressType string) error {
	_, err := db.Collection("addresses").UpdateMany(
		ctx,
		bson.M{"userId": userID, "type": addressType, "isDefault": true},
		bson.M{"$set": bson.M{"isDefault": false}},
	)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}
	return nil
}

package handlers

import (
	"context"
	"math"
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

/* =======================
   REQUEST MODELS
======================= */

type createVariantRequest struct {
	SKU       string  `json:"sku"`
	Color     string  `json:"color"`
	Size      string  `json:"size"`
	Price     float64 `json:"price" binding:"required"`
	SalePrice float64 `json:"salePrice"`
	Stock     int     `json:"stock"`
}

type createProductRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Slug        string                 `json:"slug"`
	Description string                 `json:"description"`
	Brand       string                 `json:"brand"`
	Category    string                 `json:"category"`
	Gender      string                 `json:"gender"`
	ImagePath   string                 `json:"imagePath"`
	IsActive    *bool                  `json:"isActive"`
	Variants    []createVariantRequest `json:"variants"`
}

type productUpdateRequest struct {
	Name             *string `json:"name"`
	Slug             *string `json:"slug"`
	Description      *string `json:"description"`
	Brand            *string `json:"brand"`
	Category         *string `json:"category"`
	Gender           *string `json:"gender"`
	ImagePath        *string `json:"imagePath"`
	DefaultVariantID *string `json:"defaultVariantId"`
	IsActive         *bool   `json:"isActive"`
}

type variantUpdateRequest struct {
	SKU       *string  `json:"sku"`
	Color     *string  `json:"color"`
	Size      *string  `json:"size"`
	Price     *float64 `json:"price"`
	SalePrice *float64 `json:"salePrice"`
	Stock     *int     `json:"stock"`
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}

/* =======================
   GET (ADMIN) – LIST
======================= */

func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		filter := bson.M{
			"isDeleted": bson.M{"$ne": true},
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": search, "$options": "i"}},
				{"brand": bson.M{"$regex": search, "$options": "i"}},
				{"description": bson.M{"$regex": search, "$options": "i"}},
			}
		}
		if isActive := strings.TrimSpace(c.Query("isActive")); isActive != "" {
			filter["isActive"] = strings.EqualFold(isActive, "true")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(limit)))
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		var products []models.Product
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		responses, err := attachVariants(ctx, db, products)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": responses,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

/* =======================
   CREATE
======================= */

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		if len(req.Variants) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "at least one variant required")
			return
		}
		for _, v := range req.Variants {
			if v.Price <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "invalid price")
				return
			}
			if v.SalePrice < 0 || (v.SalePrice > 0 && v.SalePrice >= v.Price) {
				respondWithError(c, http.StatusBadRequest, route, "sale price must be below price")
				return
			}
			if v.Stock < 0 {
				respondWithError(c, http.StatusBadRequest, route, "stock must be zero or greater")
				return
			}
		}

		slug := strings.TrimSpace(req.Slug)
		if slug == "" {
			slug = slugify(req.Name)
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		now := time.Now()
		product := models.Product{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(req.Name),
			Slug:        slug,
			Description: strings.TrimSpace(req.Description),
			Brand:       strings.TrimSpace(req.Brand),
			Category:    strings.TrimSpace(req.Category),
			Gender:      strings.TrimSpace(req.Gender),
			ImagePath:   strings.TrimSpace(req.ImagePath),
			IsActive:    isActive,
			IsDeleted:   false,
			CreatedAt:   now,
		}

		variants := make([]models.Variant, 0, len(req.Variants))
		docs := make([]interface{}, 0, len(req.Variants))
		for _, v := range req.Variants {
			variant := models.Variant{
				ID:        uuid.NewString(),
				ProductID: product.ID,
				SKU:       strings.TrimSpace(v.SKU),
				Color:     strings.TrimSpace(v.Color),
				Size:      strings.TrimSpace(v.Size),
				Price:     v.Price,
				SalePrice: v.SalePrice,
				Stock:     v.Stock,
				InStock:   v.Stock > 0,
				CreatedAt: now,
			}
			variants = append(variants, variant)
			docs = append(docs, variant)
		}
		product.DefaultVariantID = variants[0].ID

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		if _, err := db.Collection("products").InsertOne(ctx, product); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if _, err := db.Collection("variants").InsertMany(ctx, docs); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "duplicate sku")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, productResponse{Product: product, Variants: variants})
	}
}

/* =======================
   UPDATE
======================= */

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/products/:id"
		defer handlePanic(c, route)

		id := c.Param("id")

		var req productUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		updateSet := bson.M{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondWithError(c, http.StatusBadRequest, route, "name required")
				return
			}
			updateSet["name"] = name
		}
		if req.Slug != nil {
			updateSet["slug"] = slugify(*req.Slug)
		}
		if req.Description != nil {
			updateSet["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Brand != nil {
			updateSet["brand"] = strings.TrimSpace(*req.Brand)
		}
		if req.Category != nil {
			updateSet["category"] = strings.TrimSpace(*req.Category)
		}
		if req.Gender != nil {
			updateSet["gender"] = strings.TrimSpace(*req.Gender)
		}
		if req.ImagePath != nil {
			updateSet["imagePath"] = strings.TrimSpace(*req.ImagePath)
		}
		if req.DefaultVariantID != nil {
			variantFilter := bson.M{"_id": *req.DefaultVariantID, "productId": id}
			if err := db.Collection("variants").FindOne(ctx, variantFilter).Err(); err != nil {
				respondWithError(c, http.StatusBadRequest, route, "variant does not belong to product")
				return
			}
			updateSet["defaultVariantId"] = *req.DefaultVariantID
		}
		if req.IsActive != nil {
			updateSet["isActive"] = *req.IsActive
		}

		if len(updateSet) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		result, err := db.Collection("products").UpdateOne(
			ctx,
			bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": updateSet},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		var updated models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&updated); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

/* =======================
   DELETE (SOFT)
======================= */

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/products/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").UpdateOne(
			ctx,
			bson.M{"_id": c.Param("id"), "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{
				"isDeleted": true,
				"deletedAt": time.Now(),
				"isActive":  false,
			}},
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

/* =======================
   VARIANTS
======================= */

func CreateVariant(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/products/:id/variants"
		defer handlePanic(c, route)

		productID := c.Param("id")

		var req createVariantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if req.Price <= 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid price")
			return
		}
		if req.SalePrice < 0 || (req.SalePrice > 0 && req.SalePrice >= req.Price) {
			respondWithError(c, http.StatusBadRequest, route, "sale price must be below price")
			return
		}
		if req.Stock < 0 {
			respondWithError(c, http.StatusBadRequest, route, "stock must be zero or greater")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		productFilter := bson.M{"_id": productID, "isDeleted": bson.M{"$ne": true}}
		if err := db.Collection("products").FindOne(ctx, productFilter).Err(); err != nil {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		variant := models.Variant{
			ID:        uuid.NewString(),
			ProductID: productID,
			SKU:       strings.TrimSpace(req.SKU),
			Color:     strings.TrimSpace(req.Color),
			Size:      strings.TrimSpace(req.Size),
			Price:     req.Price,
			SalePrice: req.SalePrice,
			Stock:     req.Stock,
			InStock:   req.Stock > 0,
			CreatedAt: time.Now(),
		}

		if _, err := db.Collection("variants").InsertOne(ctx, variant); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "duplicate sku")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusCreated, variant)
	}
}

// UpdateVariant is an absolute overwrite of the submitted fields. Stock set
// here replaces the counter; checkout decrements still apply on top.
func UpdateVariant(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/variants/:id"
		defer handlePanic(c, route)

		var req variantUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		updateSet := bson.M{}
		if req.SKU != nil {
			updateSet["sku"] = strings.TrimSpace(*req.SKU)
		}
		if req.Color != nil {
			updateSet["color"] = strings.TrimSpace(*req.Color)
		}
		if req.Size != nil {
			updateSet["size"] = strings.TrimSpace(*req.Size)
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				respondWithError(c, http.StatusBadRequest, route, "invalid price")
				return
			}
			updateSet["price"] = *req.Price
		}
		if req.SalePrice != nil {
			if *req.SalePrice < 0 {
				respondWithError(c, http.StatusBadRequest, route, "invalid sale price")
				return
			}
			updateSet["salePrice"] = *req.SalePrice
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				respondWithError(c, http.StatusBadRequest, route, "stock must be zero or greater")
				return
			}
			updateSet["stock"] = *req.Stock
		}

		if len(updateSet) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "no fields to update")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := db.Collection("variants").UpdateOne(ctx, bson.M{"_id": c.Param("id")}, bson.M{"$set": updateSet})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				respondWithError(c, http.StatusConflict, route, "duplicate sku")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if result.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "variant not found")
			return
		}

		var updated models.Variant
		if err := db.Collection("variants").FindOne(ctx, bson.M{"_id": c.Param("id")}).Decode(&updated); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		updated.InStock = updated.Stock > 0

		c.JSON(http.StatusOK, updated)
	}
}

package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type productResponse struct {
	models.Product
	Variants []models.Variant `json:"variants"`
}

/*
GET /products
- pagination optional: applied only when page + limit are both present
- filters: category, brand, gender, search
- sort: latest (default), price_asc, price_desc by default-variant price
*/
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		filter := bson.M{
			"isActive":  bson.M{"$ne": false},
			"isDeleted": bson.M{"$ne": true},
		}

		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}
		if brand := strings.TrimSpace(c.Query("brand")); brand != "" {
			filter["brand"] = brand
		}
		if gender := strings.TrimSpace(c.Query("gender")); gender != "" {
			filter["gender"] = gender
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["name"] = bson.M{"$regex": search, "$options": "i"}
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		pageStr := c.Query("page")
		limitStr := c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
				return
			}
			findOptions.
				SetSkip((page - 1) * limit).
				SetLimit(limit)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
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

		responses = sortByPriceParam(responses, c.Query("sort"))

		log.Printf("[%s] returning %d products", route, len(responses))
		c.JSON(http.StatusOK, responses)
	}
}

// GetProduct looks the product up by id first, then by slug.
func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		ref := c.Param("id")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{
			"$or":       []bson.M{{"_id": ref}, {"slug": ref}},
			"isDeleted": bson.M{"$ne": true},
		}

		var product models.Product
		err := db.Collection("products").FindOne(ctx, filter).Decode(&product)
		if errors.Is(err, mongo.ErrNoDocuments) {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		responses, err := attachVariants(ctx, db, []models.Product{product})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, responses[0])
	}
}

func attachVariants(ctx context.Context, db *mongo.Database, products []models.Product) ([]productResponse, error) {
	responses := make([]productResponse, 0, len(products))
	if len(products) == 0 {
		return responses, nil
	}

	productIDs := make([]string, 0, len(products))
	for _, p := range products {
		productIDs = append(productIDs, p.ID)
	}

	cursor, err := db.Collection("variants").Find(ctx, bson.M{"productId": bson.M{"$in": productIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	variantsByProduct := make(map[string][]models.Variant, len(products))
	for cursor.Next(ctx) {
		var variant models.Variant
		if err := cursor.Decode(&variant); err != nil {
			return nil, err
		}
		variant.InStock = variant.Stock > 0
		variantsByProduct[variant.ProductID] = append(variantsByProduct[variant.ProductID], variant)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	for _, p := range products {
		variants := variantsByProduct[p.ID]
		if variants == nil {
			variants = []models.Variant{}
		}
		responses = append(responses, productResponse{Product: p, Variants: variants})
	}
	return responses, nil
}

// sortByPriceParam orders products by their cheapest variant's effective
// price. Unknown sort values keep the createdAt ordering.
func sortByPriceParam(products []productResponse, sort string) []productResponse {
	if sort != "price_asc" && sort != "price_desc" {
		return products
	}

	minPrice := func(p productResponse) float64 {
		if len(p.Variants) == 0 {
			return 0
		}
		min := p.Variants[0].EffectivePrice()
		for _, v := range p.Variants[1:] {
			if price := v.EffectivePrice(); price < min {
				min = price
			}
		}
		return min
	}

	sorted := make([]productResponse, len(products))
	copy(sorted, products)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0; j-- {
			less := minPrice(sorted[j]) < minPrice(sorted[j-1])
			if sort == "price_desc" {
				less = minPrice(sorted[j]) > minPrice(sorted[j-1])
			}
			if !less {
				break
			}
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}

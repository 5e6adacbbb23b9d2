package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/checkout"
)

/* =========================
   REQUEST DTOs
========================= */

type createCheckoutSessionRequest struct {
	Items      []checkout.CartItemInput `json:"items" binding:"required"`
	CouponCode string                   `json:"couponCode"`
}

type checkoutSuccessRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type validateCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

/* =========================
   CREATE CHECKOUT SESSION
========================= */

func CreateCheckoutSession(svc *checkout.Service, providerTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/session"
		defer handlePanic(c, route)

		identity, ok := currentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "you must be logged in to checkout")
			return
		}

		var req createCheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
		defer cancel()

		url, err := svc.CreateSession(ctx, identity, req.Items, req.CouponCode)
		if err != nil {
			var couponErr *checkout.InvalidCouponError
			switch {
			case errors.Is(err, checkout.ErrEmptyCart):
				respondWithError(c, http.StatusBadRequest, route, "cart is empty")
			case errors.Is(err, checkout.ErrNoValidItems):
				respondWithError(c, http.StatusBadRequest, route, "no valid items found")
			case errors.As(err, &couponErr):
				respondWithError(c, http.StatusBadRequest, route, couponErr.Message)
			default:
				log.Printf("[%s] session creation failed: %v", route, err)
				respondWithError(c, http.StatusBadGateway, route, "failed to proceed to checkout")
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": url})
	}
}

/* =========================
   CHECKOUT SUCCESS (commit)
========================= */

// CheckoutSuccess is the return leg of the hosted checkout. Idempotent:
// repeated calls with the same session id return the same order. A commit
// failure is reported as its own state; the payment itself may already have
// succeeded, so it is never phrased as a payment failure.
func CheckoutSuccess(svc *checkout.Service, providerTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/success"
		defer handlePanic(c, route)

		var req checkoutSuccessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "no session ID")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), providerTimeout)
		defer cancel()

		result, err := svc.CommitSession(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, checkout.ErrPaymentNotConfirmed) {
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "payment not successful"})
				return
			}
			log.Printf("[%s] commit failed for session %s: %v", route, req.SessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "order could not be finalized, your payment may have succeeded",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "orderId": result.OrderID})
	}
}

/* =========================
   COUPONS
========================= */

func ValidateCoupon(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /coupons/validate"
		defer handlePanic(c, route)

		var req validateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, checkout.CouponResult{Valid: false, Message: "No code provided"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := svc.ValidateCoupon(ctx, req.Code)
		if err != nil {
			log.Printf("[%s] validation failed: %v", route, err)
			c.JSON(http.StatusOK, checkout.CouponResult{Valid: false, Message: "Error validating coupon"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tarifflens/backend/internal/domain"
)

// ProductClassifier runs the classification pipeline for one product name
type ProductClassifier interface {
	Classify(ctx context.Context, productName string) (*domain.ProductInfo, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	classifier ProductClassifier
}

// NewHandler creates a new HTTP handler
func NewHandler(classifier ProductClassifier) *Handler {
	return &Handler{classifier: classifier}
}

// productInfoResponse is the wire form of a classification result.
// Candidate entries render as [code, description] pairs.
type productInfoResponse struct {
	Name                   string              `json:"name"`
	Type                   string              `json:"type"`
	Information            string              `json:"information"`
	HSCodes                []string            `json:"hs_codes"`
	Sources                map[string][]string `json:"sources,omitempty"`
	MatchingCommodityInfo  [][2]string         `json:"matching_commodity_info"`
	BestCommodityCode      string              `json:"best_commodity_code,omitempty"`
	BestCommodityReasoning string              `json:"best_commodity_reasoning"`
	ClassificationRule     string              `json:"classification_rule,omitempty"`
}

func newProductInfoResponse(info *domain.ProductInfo) productInfoResponse {
	pairs := make([][2]string, 0, len(info.Matches))
	for _, match := range info.Matches {
		pairs = append(pairs, [2]string{match.Code, match.Description})
	}

	return productInfoResponse{
		Name:                   info.Name,
		Type:                   info.Type,
		Information:            info.Information,
		HSCodes:                info.HSCodes,
		Sources:                info.Sources,
		MatchingCommodityInfo:  pairs,
		BestCommodityCode:      info.BestCode,
		BestCommodityReasoning: info.BestReasoning,
		ClassificationRule:     info.ClassificationRule,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tarifflens-backend",
		"version": "1.0.0",
	})
}

// ProcessProduct handles the web form submission and returns the full
// classification result
func (h *Handler) ProcessProduct(c *gin.Context) {
	productName := strings.TrimSpace(c.PostForm("product_name"))
	if productName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid product name."})
		return
	}

	info, err := h.classifier.Classify(c.Request.Context(), productName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid product name."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error processing product information."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_info": newProductInfoResponse(info)})
}

// ClassifyProduct handles JSON API classification requests, answering
// with just the selected commodity code
func (h *Handler) ClassifyProduct(c *gin.Context) {
	var req domain.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product name is required"})
		return
	}

	if strings.TrimSpace(req.ProductName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product name cannot be empty"})
		return
	}

	info, err := h.classifier.Classify(c.Request.Context(), req.ProductName)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product name cannot be empty"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not classify product"})
		return
	}

	best, ok := info.BestMatch()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching commodity code found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commodity_code": best.Code,
		"description":    best.Description,
		"reasoning":      info.BestReasoning,
	})
}

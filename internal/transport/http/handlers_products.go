package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adepetun22/shopapp/internal/domain"
)

// listProducts отдаёт страницу каталога с фильтрами из query-параметров.
func (h *Handler) listProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Search:   c.Query("search"),
		Sort:     domain.ProductSort(c.Query("sort")),
		Featured: c.Query("featured") == "true",
		OnSale:   c.Query("isOnSale") == "true",
		MinPrice: queryFloat(c, "minPrice"),
		MaxPrice: queryFloat(c, "maxPrice"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", domain.DefaultPageLimit),
	}

	result, err := h.catalog.List(filter)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"count":    len(result.Products),
		"total":    result.Total,
		"page":     result.Page,
		"pages":    result.Pages,
		"products": result.Products,
	})
}

// featuredProducts отдаёт витрину избранных товаров.
func (h *Handler) featuredProducts(c *gin.Context) {
	products, err := h.catalog.Featured(queryInt(c, "limit", 8))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"count":    len(products),
		"products": products,
	})
}

// saleProducts отдаёт товары со скидкой.
func (h *Handler) saleProducts(c *gin.Context) {
	products, err := h.catalog.OnSale(queryInt(c, "limit", 8))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"count":    len(products),
		"products": products,
	})
}

func (h *Handler) productCategories(c *gin.Context) {
	categories, err := h.catalog.Categories()
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) productBrands(c *gin.Context) {
	brands, err := h.catalog.Brands()
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"brands": brands})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"product": product})
}

// createProduct добавляет товар в каталог. Только для администратора.
func (h *Handler) createProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.catalog.Create(product)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"product": created})
}

// updateProduct перезаписывает товар целиком. Только для администратора.
func (h *Handler) updateProduct(c *gin.Context) {
	var product domain.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	product.ID = c.Param("id")

	updated, err := h.catalog.Update(product)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"product": updated})
}

// deleteProduct удаляет товар. Только для администратора.
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.Delete(c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "product removed"})
}

func (h *Handler) listReviews(c *gin.Context) {
	reviews, err := h.shop.ListReviews(c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"count":   len(reviews),
		"reviews": reviews,
	})
}

type addReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// addReview добавляет отзыв от имени текущего пользователя.
func (h *Handler) addReview(c *gin.Context) {
	var req addReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	identity := identityFromContext(c)
	userName := ""
	if user, err := h.users.Get(identity.UserID); err == nil {
		userName = user.FirstName + " " + user.LastName
	}

	if err := h.shop.AddReview(c.Param("id"), identity.UserID, userName, req.Rating, req.Comment); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "review added"})
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryFloat(c *gin.Context, name string) float64 {
	value, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0
	}
	return value
}

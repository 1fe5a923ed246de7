package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/server/http/dto"
)

// SellerHandler manages roster administration endpoints.
type SellerHandler struct {
	facade RosterFacade
}

// NewSellerHandler constructs SellerHandler.
func NewSellerHandler(facade RosterFacade) *SellerHandler {
	return &SellerHandler{facade: facade}
}

// List handles GET /api/admin/sellers.
func (h *SellerHandler) List(c *gin.Context) {
	sellers, err := h.facade.Sellers(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	response := make([]dto.SellerResponse, 0, len(sellers))
	for _, s := range sellers {
		response = append(response, toSellerResponse(s))
	}

	c.JSON(http.StatusOK, response)
}

// Add handles POST /api/admin/sellers.
func (h *SellerHandler) Add(c *gin.Context) {
	var req dto.AddSellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	seller := &model.Seller{
		ID:        req.TelegramID,
		Username:  req.Username,
		FirstName: req.FirstName,
		Nickname:  req.Nickname,
		Active:    true,
	}
	if err := h.facade.AddSeller(c.Request.Context(), seller); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, toSellerResponse(*seller))
}

// SetActive handles PATCH /api/admin/sellers/:id.
func (h *SellerHandler) SetActive(c *gin.Context) {
	sellerID := c.Param("id")
	if sellerID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	var req dto.SetSellerActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err := h.facade.SetSellerActive(c.Request.Context(), sellerID, *req.Active)
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, domainErrors.ErrNotFound):
		c.Status(http.StatusNotFound)
	default:
		c.Status(http.StatusInternalServerError)
	}
}

func toSellerResponse(s model.Seller) dto.SellerResponse {
	return dto.SellerResponse{
		TelegramID:   s.ID,
		Username:     s.Username,
		FirstName:    s.FirstName,
		Nickname:     s.Nickname,
		Active:       s.Active,
		LastActiveAt: s.LastActiveAt,
	}
}

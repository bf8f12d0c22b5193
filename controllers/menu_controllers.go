package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/models"
	"github.com/yeremiapane/qrdine/repository"
	"github.com/yeremiapane/qrdine/utils"
)

// MenuController -> katalog minimal; CRUD lengkap berada di luar core
type MenuController struct {
	Repos repository.Repos
}

func NewMenuController(repos repository.Repos) *MenuController {
	return &MenuController{Repos: repos}
}

// CreateMenuItem -> admin menambahkan item katalog
func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var req struct {
		Name   string             `json:"name" binding:"required"`
		Price  float64            `json:"price" binding:"required"`
		Extras []models.MenuExtra `json:"extras"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item := &models.MenuItem{
		RestaurantID: c.GetUint("restaurant_id"),
		Name:         req.Name,
		Price:        req.Price,
		Available:    true,
		Extras:       req.Extras,
	}
	if err := mc.Repos.Menu().Create(item); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// ListMenu -> daftar katalog untuk customer (public per restoran)
func (mc *MenuController) ListMenu(c *gin.Context) {
	restaurantID, _ := strconv.Atoi(c.Param("restaurant_id"))
	items, err := mc.Repos.Menu().List(uint(restaurantID))
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

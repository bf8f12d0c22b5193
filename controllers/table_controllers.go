package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/services"
	"github.com/yeremiapane/qrdine/utils"
)

type TableController struct {
	Tables *services.TableService
}

func NewTableController(tables *services.TableService) *TableController {
	return &TableController{Tables: tables}
}

// CreateTable -> menambahkan meja baru dengan QR id
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Capacity int `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Tables.CreateTable(c.Request.Context(), staffCtx(c), req.Capacity)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> seluruh meja restoran pemanggil
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.ListTables(c.Request.Context(), staffCtx(c))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

// DeleteTable -> hanya meja tanpa riwayat sesi/order
func (tc *TableController) DeleteTable(c *gin.Context) {
	tableID, _ := strconv.Atoi(c.Param("table_id"))
	if err := tc.Tables.DeleteTable(c.Request.Context(), staffCtx(c), uint(tableID)); err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"table_id": tableID})
}

// ActivateTable -> inactive/closed ke active
func (tc *TableController) ActivateTable(c *gin.Context) {
	tableID, _ := strconv.Atoi(c.Param("table_id"))
	table, err := tc.Tables.Activate(c.Request.Context(), staffCtx(c), uint(tableID))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table activated", table)
}

// CloseTable -> tarik meja dari rotasi
func (tc *TableController) CloseTable(c *gin.Context) {
	tableID, _ := strconv.Atoi(c.Param("table_id"))
	table, err := tc.Tables.Close(c.Request.Context(), staffCtx(c), uint(tableID))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table closed", table)
}

// ReleaseTable -> checkout; 400 berisi nomor order yang menahan jika dapur
// belum selesai
func (tc *TableController) ReleaseTable(c *gin.Context) {
	tableID, _ := strconv.Atoi(c.Param("table_id"))
	table, err := tc.Tables.Release(c.Request.Context(), staffCtx(c), uint(tableID))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table released", table)
}

// ForceReleaseTable -> jalur admin, membatalkan semua order tersisa
func (tc *TableController) ForceReleaseTable(c *gin.Context) {
	tableID, _ := strconv.Atoi(c.Param("table_id"))
	table, err := tc.Tables.ForceRelease(c.Request.Context(), staffCtx(c), uint(tableID))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table force released", table)
}

// RequestBill -> customer minta tagihan dari sesinya
func (tc *TableController) RequestBill(c *gin.Context) {
	session := sessionFromCtx(c)
	if session == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session missing"))
		return
	}

	table, err := tc.Tables.RequestBill(c.Request.Context(), session)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill requested", table)
}

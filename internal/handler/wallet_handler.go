package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stakepot/backend/internal/database"
	"stakepot/backend/internal/models"
	"stakepot/backend/internal/treasury"

	"github.com/gin-gonic/gin"
)

// Bank is the wallet ledger, wired up in main.
var Bank *treasury.Ledger

// region --- DTOs ---

type CreditWalletInput struct {
	Amount int64 `json:"amount" binding:"required,gt=0" example:"100"`
}

type SettlementResponse struct {
	GameID     uint64    `json:"game_id" example:"1"`
	Result     string    `json:"result" example:"win"`
	Recipients []string  `json:"recipients"`
	Paid       int64     `json:"paid" example:"30"`
	SettledAt  time.Time `json:"settled_at"`
}

func newSettlementResponse(s models.Settlement) SettlementResponse {
	return SettlementResponse{
		GameID:     s.GameID,
		Result:     s.Result,
		Recipients: strings.Split(s.Recipients, ","),
		Paid:       s.Paid,
		SettledAt:  s.CreatedAt,
	}
}

// endregion

// GetMyWallet godoc
// @Summary      Get own wallet
// @Description  Returns the caller's wallet address and balance.
// @Tags         wallets
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  WalletResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Wallet not found"
// @Router       /wallets/me [get]
func GetMyWallet(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, WalletResponse{Address: wallet.Address, Balance: wallet.Balance})
}

// CreditWallet godoc
// @Summary      Credit a wallet (Admin only)
// @Description  Mints funds into the wallet at the given address.
// @Tags         admin-wallets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        address path string            true "Wallet address"
// @Param        input   body CreditWalletInput true "Amount"
// @Success      200  {object}  map[string]string "{"message": "Wallet credited"}"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Failure      404  {object}  ErrorResponse "Wallet not found"
// @Router       /admin/wallets/{address}/credit [post]
func CreditWallet(c *gin.Context) {
	address := c.Param("address")

	var input CreditWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Bank.Mint(address, input.Amount); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, treasury.ErrUnknownWallet) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Wallet credited"})
}

// GetSettlements godoc
// @Summary      List settlements (Admin only)
// @Description  Gets a paginated history of terminal game outcomes, newest first.
// @Tags         admin-settlements
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200  {object}  PaginatedResponse[SettlementResponse]
// @Failure      403  {object}  ErrorResponse "Admin access required"
// @Router       /admin/settlements [get]
func GetSettlements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	paginated, err := Paginate[models.Settlement](database.DB.Order("created_at DESC"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve settlements"})
		return
	}

	data := make([]SettlementResponse, len(paginated.Data))
	for i, s := range paginated.Data {
		data[i] = newSettlementResponse(s)
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(data, paginated.Meta.TotalItems, page, limit))
}

package handlers

import (
	"errors"
	"net/http"

	"stakeqa/services"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses:
// validation 400, not-found 404, ledger and store failures 500. Messages
// are returned as-is; ledger errors carry the contract's own string.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		ledgerErr     *services.LedgerError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &ledgerErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": ledgerErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

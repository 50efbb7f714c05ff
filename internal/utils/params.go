package utils

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetUintParam parses a numeric path parameter such as :profile_id.
func GetUintParam(ctx *gin.Context, name, label string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, fmt.Errorf("%s not found", label)
	}

	value, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || value == 0 {
		return 0, fmt.Errorf("Invalid %s", label)
	}

	return uint(value), nil
}

// GetPagination reads ?page and ?page_size, clamping to sane bounds.
func GetPagination(ctx *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = 20
	}

	if pageSize > 100 {
		pageSize = 100
	}

	return page, pageSize
}

func NormalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// EmailDomain returns the part after @ of a well formed address.
func EmailDomain(input string) (string, error) {
	address, err := mail.ParseAddress(strings.TrimSpace(input))

	if err != nil {
		return "", errors.New("invalid email address")
	}

	at := strings.LastIndex(address.Address, "@")

	if at < 0 || at == len(address.Address)-1 {
		return "", errors.New("email address has no domain")
	}

	return strings.ToLower(address.Address[at+1:]), nil
}

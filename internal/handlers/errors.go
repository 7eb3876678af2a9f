package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
	"github.com/thereayou/score-rooms/internal/services"
)

// HandleServiceError переводит ошибку сервиса в HTTP ответ
func HandleServiceError(c *gin.Context, err error) {
	kind := services.Kind(err)

	status := http.StatusInternalServerError
	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "membership":
		status = http.StatusConflict
	case "persistence":
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path": c.FullPath(),
			"kind": kind,
		}).WithError(err).Error("Request failed")
	}

	c.JSON(status, dto.ErrorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "validation"})
}

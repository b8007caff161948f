package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/folio/internal/store"
)

const (
	maxMessageFieldLength = 256
	maxMessageBodyLength  = 10000
)

type messageRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func validateMessageRequest(inbound messageRequest) string {
	if strings.TrimSpace(inbound.Name) == "" {
		return "name is required"
	}
	if len(inbound.Name) > maxMessageFieldLength {
		return "name is too long"
	}
	atIndex := strings.Index(inbound.Email, "@")
	if atIndex <= 0 || atIndex == len(inbound.Email)-1 {
		return "a valid email is required"
	}
	if len(inbound.Email) > maxMessageFieldLength || len(inbound.Subject) > maxMessageFieldLength {
		return "field is too long"
	}
	if strings.TrimSpace(inbound.Body) == "" {
		return "message body is required"
	}
	if len(inbound.Body) > maxMessageBodyLength {
		return "message body is too long"
	}
	return ""
}

func (handlers ContentHandlers) createMessage(contextGin *gin.Context) {
	var inbound messageRequest
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
		return
	}
	if validationError := validateMessageRequest(inbound); validationError != "" {
		contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationError})
		return
	}
	record := store.MessageRecord{
		Name:    strings.TrimSpace(inbound.Name),
		Email:   strings.TrimSpace(inbound.Email),
		Subject: strings.TrimSpace(inbound.Subject),
		Body:    inbound.Body,
	}
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	if err := handlers.Messages.Add(ctx, &record); err != nil {
		handlers.Logger.Error("message store rejected submission",
			zap.String("code", "web.messages.add"),
			zap.Error(err))
		contextGin.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "temporarily unavailable"})
		return
	}
	contextGin.JSON(http.StatusCreated, gin.H{"message": "received", "id": record.ID})
}

func (handlers ContentHandlers) listMessages(contextGin *gin.Context) {
	ctx, cancel := context.WithTimeout(contextGin.Request.Context(), storeCallTimeout)
	defer cancel()
	records, err := handlers.Messages.List(ctx)
	if err != nil {
		handlers.fail(contextGin, "web.messages.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, records)
}

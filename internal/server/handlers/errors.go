package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/epharmacy/internal/apperr"
)

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindInvalidImage:    http.StatusBadRequest,
	apperr.KindOCRFailure:      http.StatusBadGateway,
	apperr.KindValidation:      http.StatusBadRequest,
	apperr.KindNotFound:        http.StatusNotFound,
	apperr.KindUpstreamFailure: http.StatusBadGateway,
	apperr.KindTimeout:         http.StatusGatewayTimeout,
}

// statusFor maps an error kind to its HTTP status. Unknown kinds are 500.
func statusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func errorPayload(err error) (int, gin.H) {
	kind := apperr.KindOf(err)
	return statusFor(kind), gin.H{"error": errorBody{Kind: kind, Message: apperr.MessageOf(err)}}
}

// writeError aborts the request with the structured error body.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := errorPayload(err)
	c.AbortWithStatusJSON(status, body)
}

// writePartial aborts with the error body and the artifacts produced so far.
func writePartial(c *gin.Context, result interface{}, err error) {
	_ = c.Error(err)
	status, body := errorPayload(err)
	body["result"] = result
	c.AbortWithStatusJSON(status, body)
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, error) {
	raw := c.Param(name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid " + name + ": " + raw)
	}
	return id, nil
}

func bindError(err error) error {
	return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
}

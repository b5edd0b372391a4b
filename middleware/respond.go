package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/connectbuzz/connectbuzz/services"
	"github.com/connectbuzz/connectbuzz/utils"
)

// RespondError writes the response for a failed service call and aborts the chain.
// Validation and conflict failures are reported as 200 with an "error" field, which is what
// the web client reads.
func RespondError(ctx *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		se = &services.Error{Kind: services.KindInternal, Message: "Something went wrong, try again", Err: err}
	}

	switch se.Kind {
	case services.KindValidation, services.KindConflict, services.KindUnauthorized:
		utils.Error(ctx, http.StatusOK, se.Message)
	case services.KindUnauthenticated:
		utils.Error(ctx, http.StatusUnauthorized, se.Message)
	case services.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, se.Message)
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, se.Message)
	default:
		utils.Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.String("kind", se.Kind.String()),
			zap.Error(se),
		)
		utils.Error(ctx, http.StatusInternalServerError, se.Message)
	}
}

// RespondFormError is RespondError for the login and recovery forms, where an unknown
// account is also reported as 200 with an "error" field.
func RespondFormError(ctx *gin.Context, err error) {
	if services.KindOf(err) == services.KindNotFound {
		var se *services.Error
		errors.As(err, &se)
		utils.Error(ctx, http.StatusOK, se.Message)
		return
	}
	RespondError(ctx, err)
}

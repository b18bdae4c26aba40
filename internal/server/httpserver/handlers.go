package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/dmitrijs2005/agrodetect/internal/logging"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/gin-gonic/gin"
)

// Accounts is the subset of services.UserService used by the API.
type Accounts interface {
	Register(ctx context.Context, fullName, email, password string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Delete(ctx context.Context, user *models.User) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Predictor is implemented by services.PredictionService.
type Predictor interface {
	Predict(ctx context.Context, data []byte, contentType string) (*models.DetectionResult, error)
}

type handler struct {
	accounts  Accounts
	predictor Predictor
	maxUpload int64
	logger    logging.Logger
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) deleteAccount(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		writeError(c, common.ErrorUnauthorized)
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), user); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handler) predict(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	data, contentType, err := h.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.predictor.Predict(c.Request.Context(), data, contentType)
	if err != nil {
		if status, _ := statusFor(err); status == http.StatusInternalServerError {
			h.logger.Error(c.Request.Context(), "prediction failed", "error", err)
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) readUpload(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return nil, "", fmt.Errorf("%w: upload exceeds %d bytes", common.ErrValidation, tooBig.Limit)
		case errors.Is(err, http.ErrMissingFile):
			return nil, "", fmt.Errorf("%w: file is required", common.ErrValidation)
		default:
			return nil, "", fmt.Errorf("%w: invalid multipart body", common.ErrValidation)
		}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return data, fh.Header.Get("Content-Type"), nil
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-service/internal/domain"
	"user-service/internal/service"
)

const serviceName = "user-service"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users       service.UserService
	exports     service.ExportService
	logger      *logrus.Logger
	corsOrigins []string
}

func NewHandler(users service.UserService, exports service.ExportService, logger *logrus.Logger, corsOrigins []string) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:       users,
		exports:     exports,
		logger:      logger,
		corsOrigins: corsOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.HandleMethodNotAllowed = true
	router.Use(
		requestIDMiddleware(),
		loggingMiddleware(h.logger),
		recoveryMiddleware(h.logger),
		corsMiddleware(h.corsOrigins),
	)
	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "Route not found")
	})
	router.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	router.GET("/health", h.health)

	users := router.Group("/users")
	{
		users.GET("", h.listUsers)
		users.POST("", h.createUser)
		users.POST("/login", h.login)
		users.POST("/export", h.exportUsers)
		users.GET("/exports", h.listExports)
		users.GET("/:id", h.getUser)
		users.PUT("/:id", h.updateUser)
		users.DELETE("/:id", h.deleteUser)
	}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateUserRequest holds the mutable fields; any other key, password included, is dropped.
type updateUserRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "healthy", "service": serviceName})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	respondList(c, resp, len(resp))
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, userToResponse(*user))
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
		Phone:    req.Phone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.entry(c).WithField("user_id", user.ID).Info("user registered")
	respondData(c, http.StatusCreated, userToResponse(*user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    userToResponse(*user),
		Message: "Login successful",
	})
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), domain.UserPatch{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respondData(c, http.StatusOK, userToResponse(*user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}

	h.entry(c).WithField("user_id", id).Info("user deleted")
	respondMessage(c, http.StatusOK, "User deleted")
}

func (h *Handler) exportUsers(c *gin.Context) {
	res, err := h.exports.Export(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	count := res.Count
	c.JSON(http.StatusCreated, envelope{
		Success: true,
		Count:   &count,
		Data: ExportResponse{
			Location:   res.Location,
			Key:        res.Key,
			ExportedAt: res.ExportedAt.Format(timeLayout),
		},
	})
}

func (h *Handler) listExports(c *gin.Context) {
	objects, err := h.exports.ListExports(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]ExportObjectResponse, len(objects))
	for i := range objects {
		resp[i] = exportObjectToResponse(objects[i])
	}
	respondList(c, resp, len(resp))
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.entry(c).WithError(err).Error("request failed")
	}
	respondError(c, status, msg)
}

func (h *Handler) entry(c *gin.Context) *logrus.Entry {
	return h.logger.WithField("request_id", c.GetString(requestIDKey))
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/roadmap-api/internal/api/middleware"
	"github.com/d60-Lab/roadmap-api/internal/apperror"
	"github.com/d60-Lab/roadmap-api/internal/service"
	"github.com/d60-Lab/roadmap-api/pkg/response"
)

type createUserRequest struct {
	ExternalAuthID string `json:"externalAuthId"`
	FirebaseUID    string `json:"firebaseUID"`
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
}

// CreateUser 注册用户（按外部身份 ID 幂等）
// @Summary 创建用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body createUserRequest true "用户信息"
// @Success 200 {object} response.Response{data=model.User} "User already exists"
// @Success 201 {object} response.Response{data=model.User} "User created successfully"
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /auth/createUser [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	externalID := req.ExternalAuthID
	if externalID == "" {
		externalID = req.FirebaseUID
	}

	user, created, err := h.userService.CreateUser(c.Request.Context(), service.CreateUserInput{
		ExternalAuthID: externalID,
		Name:           req.Name,
		Email:          req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, "User created successfully", user)
		return
	}
	response.SuccessWithMessage(c, "User already exists", user)
}

// GetUserName 返回当前令牌对应的用户资料
// @Summary 当前用户
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.User}
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/getUserName [get]
func (h *Handler) GetUserName(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "user details found", user)
}

type caseForm struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// createCaseRequest accepts the form either flat or nested under "formdata".
type createCaseRequest struct {
	caseForm
	FormData *caseForm `json:"formdata"`
}

// CreateCase 提交支持工单，同一邮箱只允许一个未解决工单
// @Summary 创建工单
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body createCaseRequest true "工单内容"
// @Success 200 {object} response.Response{data=model.Case}
// @Success 204 "A Case already exist for the User"
// @Failure 400 {object} response.Response
// @Router /auth/createCase [post]
func (h *Handler) CreateCase(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	form := req.caseForm
	if req.FormData != nil {
		form = *req.FormData
	}

	created, err := h.caseService.CreateCase(c.Request.Context(), service.CreateCaseInput{
		Name:    form.Name,
		Email:   form.Email,
		Message: form.Message,
	})
	if errors.Is(err, apperror.ErrOpenCaseExists) {
		response.NoContent(c, "A Case already exist for the User")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Case created successfully", created)
}

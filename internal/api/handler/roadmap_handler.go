package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/roadmap-api/internal/api/middleware"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/service"
	"github.com/d60-Lab/roadmap-api/pkg/response"
)

type saveRoadmapRequest struct {
	Name   string        `json:"name" binding:"required"`
	UserID string        `json:"userId" binding:"required"`
	Topics []model.Topic `json:"topics"`
}

// SaveRoadmap 保存用户的学习路线
// @Summary 保存路线
// @Tags 路线
// @Accept json
// @Produce json
// @Param request body saveRoadmapRequest true "路线"
// @Success 200 {object} response.Response{data=model.Roadmap}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/saveRoadMap [post]
func (h *Handler) SaveRoadmap(c *gin.Context) {
	var req saveRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	rm, err := h.roadmapService.SaveRoadmap(c.Request.Context(), req.UserID, req.Name, req.Topics)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Roadmaps saved", rm)
}

// GetRoadmap 查询用户路线；没有路线时返回 204
// @Summary 查询路线
// @Tags 路线
// @Produce json
// @Security BearerAuth
// @Param uid query string false "外部用户ID，缺省取令牌中的 uid"
// @Success 200 {object} response.Response{data=model.Roadmap}
// @Success 204 "newuser"
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/getRoadMap [get]
func (h *Handler) GetRoadmap(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		uid = middleware.UID(c)
	}
	rm, err := h.roadmapService.GetRoadmap(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rm == nil {
		response.NoContent(c, "newuser")
		return
	}
	response.SuccessWithMessage(c, "Roadmap found", rm)
}

type statusRequest struct {
	TopicID    string `json:"topicId" binding:"required"`
	SubtopicID string `json:"subtopicId" binding:"required"`
	UID        string `json:"uid" binding:"required"`
}

func (r statusRequest) ref() service.SubtopicRef {
	return service.SubtopicRef{UID: r.UID, TopicID: r.TopicID, SubtopicID: r.SubtopicID}
}

// UpdateStatus 开始学习某个子主题
// @Summary 子主题标记为进行中
// @Tags 路线
// @Accept json
// @Produce json
// @Param request body statusRequest true "子主题定位"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/updateStatus [post]
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Missing required fields.")
		return
	}
	if err := h.roadmapService.StartSubtopic(c.Request.Context(), req.ref()); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Status updated successfully.", nil)
}

// MarkComplete 完成某个子主题
// @Summary 子主题标记为完成
// @Tags 路线
// @Accept json
// @Produce json
// @Param request body statusRequest true "子主题定位"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/markComplete [post]
func (h *Handler) MarkComplete(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Missing required fields.")
		return
	}
	if err := h.roadmapService.CompleteSubtopic(c.Request.Context(), req.ref()); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, "Status updated successfully.", nil)
}

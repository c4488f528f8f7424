package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/service"
	"github.com/d60-Lab/roadmap-api/pkg/response"
)

type createQuestionRequest struct {
	Title  string `json:"title" binding:"max=200"`
	Body   string `json:"body" binding:"required"`
	UserID string `json:"userId"` // 携带令牌时忽略
}

// CreateQuestion 发布问题
// @Summary 发布问题
// @Tags 问答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createQuestionRequest true "问题"
// @Success 201 {object} response.Response{data=model.QuestionView}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/questions [post]
func (h *Handler) CreateQuestion(c *gin.Context) {
	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	q, err := h.qnaService.CreateQuestion(c.Request.Context(), service.CreateQuestionInput{
		Title:    req.Title,
		Body:     req.Body,
		AuthorID: actorID(c, req.UserID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Question created", q)
}

// ListQuestions 分页查询问题（带缓存）
// @Summary 问题列表
// @Tags 问答
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=[]model.QuestionView}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/questions [get]
func (h *Handler) ListQuestions(c *gin.Context) {
	page, err := service.ParsePage(c.Query("page"), c.Query("limit"), service.DefaultQuestionLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.qnaService.ListQuestions(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

type createReplyRequest struct {
	Body   string `json:"body" binding:"required"`
	UserID string `json:"userId"` // 携带令牌时忽略
}

// CreateReply 回复问题
// @Summary 回复问题
// @Tags 问答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "问题ID"
// @Param request body createReplyRequest true "回复"
// @Success 201 {object} response.Response{data=model.ReplyView}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/questions/{id}/replies [post]
func (h *Handler) CreateReply(c *gin.Context) {
	var uri idURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	var req createReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	r, err := h.qnaService.CreateReply(c.Request.Context(), uri.ID, service.CreateReplyInput{
		Body:     req.Body,
		AuthorID: actorID(c, req.UserID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Reply created", r)
}

// ListReplies 分页查询某问题的回复（带缓存）
// @Summary 回复列表
// @Tags 问答
// @Produce json
// @Security BearerAuth
// @Param id path string true "问题ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(5)
// @Success 200 {object} response.Response{data=[]model.ReplyView}
// @Failure 400 {object} response.Response
// @Router /auth/questions/{id}/replies [get]
func (h *Handler) ListReplies(c *gin.Context) {
	var uri idURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, bindMessage(err))
		return
	}
	page, err := service.ParsePage(c.Query("page"), c.Query("limit"), service.DefaultReplyLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.qnaService.ListReplies(c.Request.Context(), uri.ID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

type voteRequest struct {
	Action string `json:"action" binding:"required,voteaction"`
	UserID string `json:"userId"` // 携带令牌时忽略
}

// UpvoteQuestion 点赞 / 取消点赞问题
// @Summary 问题投票
// @Tags 问答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "问题ID"
// @Param request body voteRequest true "inc 或 dec"
// @Success 200 {object} response.Response{data=model.Question}
// @Failure 400 {object} response.Response "Invalid action / already liked / not yet liked"
// @Failure 404 {object} response.Response
// @Router /auth/question/{id}/upvote [patch]
func (h *Handler) UpvoteQuestion(c *gin.Context) {
	id, req, ok := bindVote(c)
	if !ok {
		return
	}
	q, err := h.qnaService.VoteQuestion(c.Request.Context(), id, model.VoteAction(req.Action), actorID(c, req.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, q)
}

// UpvoteReply 点赞 / 取消点赞回复
// @Summary 回复投票
// @Tags 问答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "回复ID"
// @Param request body voteRequest true "inc 或 dec"
// @Success 200 {object} response.Response{data=model.Reply}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /auth/replies/{id}/upvote [patch]
func (h *Handler) UpvoteReply(c *gin.Context) {
	id, req, ok := bindVote(c)
	if !ok {
		return
	}
	r, err := h.qnaService.VoteReply(c.Request.Context(), id, model.VoteAction(req.Action), actorID(c, req.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, r)
}

func bindVote(c *gin.Context) (string, voteRequest, bool) {
	var (
		uri idURI
		req voteRequest
	)
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, bindMessage(err))
		return "", req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, bindMessage(err))
		return "", req, false
	}
	return uri.ID, req, true
}

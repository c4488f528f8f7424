package handler

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/d60-Lab/roadmap-api/internal/api/middleware"
	"github.com/d60-Lab/roadmap-api/internal/model"
	"github.com/d60-Lab/roadmap-api/internal/service"
)

// HealthCheck 是 /healthz 探测的一个依赖
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	userService    service.UserService
	roadmapService service.RoadmapService
	qnaService     service.QnAService
	caseService    service.CaseService
	checks         []HealthCheck
}

func NewHandler(users service.UserService, roadmaps service.RoadmapService, qna service.QnAService,
	cases service.CaseService, checks ...HealthCheck,
) *Handler {
	return &Handler{
		userService:    users,
		roadmapService: roadmaps,
		qnaService:     qna,
		caseService:    cases,
		checks:         checks,
	}
}

// RegisterValidators 注册 objectid / voteaction 校验标签，并让错误信息使用 json 字段名
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not validator/v10")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "uri", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	if err := v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("voteaction", func(fl validator.FieldLevel) bool {
		return model.VoteAction(fl.Field().String()).Valid()
	})
}

// bindMessage turns a binding error into a client-facing message.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "voteaction":
		return "Invalid action"
	case "email":
		return "invalid email"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return "invalid " + fe.Field()
	}
}

// actorID 已鉴权时以令牌中的 uid 为准，请求体里的 userId 只在没有令牌时使用
func actorID(c *gin.Context, fromBody string) string {
	if uid := middleware.UID(c); uid != "" {
		return uid
	}
	return fromBody
}

type idURI struct {
	ID string `uri:"id" binding:"required,objectid"`
}

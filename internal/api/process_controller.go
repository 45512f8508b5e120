package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/service"
)

// ProcessController 流程控制器
type ProcessController struct {
	processService service.ProcessService
}

// NewProcessController 创建流程控制器
func NewProcessController(processService service.ProcessService) *ProcessController {
	return &ProcessController{processService: processService}
}

// withRequestInfo 把请求信息带入审计日志
func withRequestInfo(c *gin.Context) {
	c.Request = c.Request.WithContext(service.WithRequestInfo(
		c.Request.Context(),
		c.GetString("request_id"),
		c.ClientIP(),
		c.Request.UserAgent(),
	))
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request", err.Error())
		return false
	}
	return true
}

// Get 获取流程详情
// @Summary      获取流程详情
// @Description  返回流程实例、按阶段分组的任务和子任务以及状态历史
// @Tags         流程
// @Produce      json
// @Param        id path string true "流程实例 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /processes/{id} [get]
// @Security     BearerAuth
func (pc *ProcessController) Get(c *gin.Context) {
	view, err := pc.processService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, view)
}

// Recalc 重算进度
// @Summary      重算流程进度
// @Description  重新计算完成百分比和当前阶段,用于存储错误后的收敛
// @Tags         流程
// @Produce      json
// @Param        id path string true "流程实例 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /processes/{id}/recalc [post]
// @Security     BearerAuth
func (pc *ProcessController) Recalc(c *gin.Context) {
	result, err := pc.processService.Recalc(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// AutoComplete 用已登记文档自动完成上传任务
// @Summary      自动完成上传任务
// @Tags         流程
// @Accept       json
// @Produce      json
// @Param        id path string true "流程实例 ID"
// @Param        request body service.AutoCompleteRequest false "房源"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /processes/{id}/auto-complete [post]
// @Security     BearerAuth
func (pc *ProcessController) AutoComplete(c *gin.Context) {
	var req service.AutoCompleteRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	withRequestInfo(c)
	result, progress, err := pc.processService.AutoComplete(c.Request.Context(), auth.UserID(c), c.Param("id"), req.PropertyID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"completed": result.Completed,
		"total":     result.Total,
		"progress":  progress,
	})
}

// Transition 生命周期转换
// @Summary      流程状态转换
// @Description  approve/reject/return/pause/resume/cancel/resubmit,需要特权角色
// @Tags         流程
// @Accept       json
// @Produce      json
// @Param        id path string true "流程实例 ID"
// @Param        request body service.TransitionRequest true "转换动作"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /processes/{id}/transitions [post]
// @Security     BearerAuth
func (pc *ProcessController) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	withRequestInfo(c)
	result, err := pc.processService.Transition(c.Request.Context(), auth.UserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// ToggleSubtask 勾选子任务
// @Summary      勾选子任务
// @Tags         子任务
// @Accept       json
// @Produce      json
// @Param        id path string true "子任务 ID"
// @Param        request body service.ToggleSubtaskRequest true "勾选状态"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /subtasks/{id}/toggle [post]
// @Security     BearerAuth
func (pc *ProcessController) ToggleSubtask(c *gin.Context) {
	var req service.ToggleSubtaskRequest
	if !bindJSON(c, &req) {
		return
	}

	withRequestInfo(c)
	result, err := pc.processService.ToggleSubtask(c.Request.Context(), auth.UserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// CompleteTask 完成没有子任务的任务
// @Summary      完成任务
// @Tags         任务
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.CompleteTaskRequest false "任务结果"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/complete [post]
// @Security     BearerAuth
func (pc *ProcessController) CompleteTask(c *gin.Context) {
	var req service.CompleteTaskRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	withRequestInfo(c)
	result, err := pc.processService.CompleteTask(c.Request.Context(), auth.UserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

// BypassTask 跳过任务
// @Summary      跳过任务
// @Description  管理员跳过任务,需要特权角色
// @Tags         任务
// @Accept       json
// @Produce      json
// @Param        id path string true "任务 ID"
// @Param        request body service.BypassTaskRequest true "跳过原因"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/bypass [post]
// @Security     BearerAuth
func (pc *ProcessController) BypassTask(c *gin.Context) {
	var req service.BypassTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	withRequestInfo(c)
	result, err := pc.processService.BypassTask(c.Request.Context(), auth.UserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, result)
}

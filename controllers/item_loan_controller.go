// controllers/item_loan_controller.go
package controllers

import (
	"net/http"

	"tool_custody/app"
	"tool_custody/views"

	"github.com/gin-gonic/gin"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

type createItemReq struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// 新建工具（管理员和培训师都可），返回新工具便于前端自动选中
func (ic *ItemController) CreateItem(c *gin.Context) {
	var in createItemReq
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	it, err := ic.Engine.AddItem(c.Request.Context(), in.Name, in.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// 管理员：全部工具 + 使用次数 + 当前借用
func (ic *ItemController) ListItemsAdmin(c *gin.Context) {
	snap, err := ic.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": views.ItemSummaries(snap)})
}

// 培训师：可借工具，?q= 按名称过滤
func (ic *ItemController) ListAvailable(c *gin.Context) {
	snap, err := ic.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": views.AvailableItems(snap, c.Query("q"))})
}

// PUT /api/admin/items/:id/maintenance
func (ic *ItemController) SetMaintenance(c *gin.Context) {
	var in struct {
		On *bool `json:"on" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	it, err := ic.Engine.SetMaintenance(c.Request.Context(), c.Param("id"), *in.On)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// 管理员借出：任选培训师
func (ic *ItemController) AdminCheckout(c *gin.Context) {
	var in struct {
		ItemID    string `json:"itemId" binding:"required"`
		TrainerID string `json:"trainerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	tx, err := ic.Engine.Checkout(c.Request.Context(), in.ItemID, in.TrainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// 培训师借出：借给自己
func (ic *ItemController) PortalCheckout(c *gin.Context) {
	var in struct {
		ItemID string `json:"itemId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	as := app.CurrentSession(c)
	tx, err := ic.Engine.Checkout(c.Request.Context(), in.ItemID, as.TrainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// GET /api/admin/transactions?view=active|pending|open&q=
func (ic *ItemController) ListTransactions(c *gin.Context) {
	snap, err := ic.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	switch view := c.DefaultQuery("view", "active"); view {
	case "active":
		c.JSON(http.StatusOK, app.H{"transactions": views.ActiveLoans(snap)})
	case "pending":
		c.JSON(http.StatusOK, app.H{"transactions": views.PendingApprovals(snap)})
	case "open":
		c.JSON(http.StatusOK, app.H{"transactions": views.OpenLoans(snap, c.Query("q"))})
	default:
		badRequest(c, "unknown view "+view)
	}
}

// 管理员确认归还（无论培训师是否申请）
func (ic *ItemController) Approve(c *gin.Context) {
	tx, err := ic.Engine.ApproveReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// 培训师：自己手上正在借着的工具
func (ic *ItemController) MyLoans(c *gin.Context) {
	snap, err := ic.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	as := app.CurrentSession(c)
	c.JSON(http.StatusOK, app.H{"transactions": views.TrainerLoans(snap, as.TrainerID)})
}

// 培训师申请归还
func (ic *ItemController) RequestReturn(c *gin.Context) {
	as := app.CurrentSession(c)
	tx, err := ic.Engine.RequestReturn(c.Request.Context(), c.Param("id"), as.TrainerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

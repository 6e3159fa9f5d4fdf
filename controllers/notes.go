package controllers

import (
	"context"
	"net/http"

	"github.com/catchycrm/crm_end/middleware"
	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/repository"
	"github.com/catchycrm/crm_end/service"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AddNote 为线索添加备注
func AddNote(c *gin.Context) {
	var req models.NoteCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, "无效的请求参数: "+err.Error(), http.StatusBadRequest)
		return
	}

	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)

	note, apiErr := service.AddLeadNote(repository.GetContext(), companyID, c.Param("id"), req.Content, user)
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	utils.SuccessResponse(c, gin.H{"note": note}, "添加备注成功", http.StatusCreated)
}

// GetNotes 线索备注列表
func GetNotes(c *gin.Context) {
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	lead, apiErr := service.FindLeadInCompany(ctx, companyID, c.Param("id"))
	if apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	notes, err := listLeadNotes(ctx, lead.ID.Hex())
	if err != nil {
		utils.Logger.Error().Err(err).Msg("查询备注失败")
		utils.ErrorResponse(c, "查询备注失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, gin.H{"notes": notes}, "")
}

// DeleteNote 删除备注：仅作者本人或管理员
// 备注创建后不可修改，删除是唯一允许的变更
func DeleteNote(c *gin.Context) {
	user := utils.GetUser(c)
	companyID := middleware.GetCompanyID(c)
	ctx := repository.GetContext()

	noteID, err := primitive.ObjectIDFromHex(c.Param("noteId"))
	if err != nil {
		utils.HandleError(c, utils.CreateNotFoundError("备注"))
		return
	}

	// 备注必须属于URL中的线索
	notesCollection := repository.Collection(repository.NotesCollection)
	var note models.Note
	if err := notesCollection.FindOne(ctx, bson.M{"_id": noteID, "leadid": c.Param("id")}).Decode(&note); err != nil {
		if err == mongo.ErrNoDocuments {
			utils.HandleError(c, utils.CreateNotFoundError("备注"))
			return
		}
		utils.ErrorResponse(c, "查询备注失败", http.StatusInternalServerError)
		return
	}

	// 备注必须属于本公司的线索
	if _, apiErr := service.FindLeadInCompany(ctx, companyID, note.LeadID); apiErr != nil {
		utils.HandleError(c, apiErr)
		return
	}

	if user == nil || (!user.IsAdmin() && note.UserID != user.ID) {
		utils.HandleError(c, utils.CreateForbiddenError())
		return
	}

	if _, err := notesCollection.DeleteOne(ctx, bson.M{"_id": noteID}); err != nil {
		utils.Logger.Error().Err(err).Str("noteId", c.Param("noteId")).Msg("删除备注失败")
		utils.ErrorResponse(c, "删除备注失败", http.StatusInternalServerError)
		return
	}

	utils.SuccessResponse(c, nil, "删除备注成功")
}

// listLeadNotes 按时间倒序返回线索备注
func listLeadNotes(ctx context.Context, leadID string) ([]models.Note, error) {
	findOptions := options.Find().SetSort(bson.M{"createdat": -1})
	cursor, err := repository.Collection(repository.NotesCollection).Find(ctx, bson.M{"leadid": leadID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notes := []models.Note{}
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

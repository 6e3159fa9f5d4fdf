package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lead 线索聚合根
// 不变量：(companyid, phone) 唯一；任何状态/阶段/分配变更必须在同一事务内落一条 Activity
type Lead struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	CompanyID    string             `json:"companyId" bson:"companyid"`
	Name         string             `json:"name" bson:"name"`
	Phone        string             `json:"phone" bson:"phone"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	SourceID     string             `json:"sourceId" bson:"sourceid"`
	StageID      string             `json:"stageId" bson:"stageid"`
	Status       LeadStatus         `json:"status" bson:"status"`
	Priority     LeadPriority       `json:"priority" bson:"priority"`
	AssignedTo   string             `json:"assignedTo,omitempty" bson:"assignedto,omitempty"`
	NextFollowUp *time.Time         `json:"nextFollowUp,omitempty" bson:"nextfollowup,omitempty"`
	Notes        string             `json:"notes,omitempty" bson:"notes,omitempty"`
	Tags         []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdat"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedat"`

	// 列表展示冗余字段，查询时回填，不落库
	SourceName   string `json:"sourceName,omitempty" bson:"-"`
	StageName    string `json:"stageName,omitempty" bson:"-"`
	AssigneeName string `json:"assigneeName,omitempty" bson:"-"`
}

// CanBeAssigned 线索是否可被分配（won/lost 不可再分配）
func (l *Lead) CanBeAssigned() bool {
	return l.Status != LeadStatusWon && l.Status != LeadStatusLost
}

// IsDeleted 是否已软删除
func (l *Lead) IsDeleted() bool {
	return l.Status == LeadStatusDeleted
}

// Initials 头像缩写：姓名前两个词的首字母；无姓名时退回手机号/邮箱首字符
func (l *Lead) Initials() string {
	parts := strings.Fields(l.Name)
	if len(parts) >= 2 {
		return strings.ToUpper(parts[0][:1] + parts[1][:1])
	}
	if len(parts) == 1 {
		return strings.ToUpper(parts[0][:1])
	}
	if l.Phone != "" {
		return strings.ToUpper(l.Phone[:1])
	}
	if l.Email != "" {
		return strings.ToUpper(l.Email[:1])
	}
	return "?"
}

// TimeSinceCreated 创建至今的相对时间文案
func (l *Lead) TimeSinceCreated(now time.Time) string {
	delta := now.Sub(l.CreatedAt)

	if delta >= 30*24*time.Hour {
		months := int(delta.Hours() / 24 / 30)
		return fmt.Sprintf("%d month%s ago", months, plural(months))
	}
	if delta >= 24*time.Hour {
		days := int(delta.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	}
	if delta >= time.Hour {
		hours := int(delta.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	}
	if delta >= time.Minute {
		minutes := int(delta.Minutes())
		return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
	}
	return "Just now"
}

// TimeUntilFollowUp 距下次跟进的相对时间文案，未设置跟进时间返回空串
func (l *Lead) TimeUntilFollowUp(now time.Time) string {
	if l.NextFollowUp == nil {
		return ""
	}

	delta := l.NextFollowUp.Sub(now)
	if delta < 0 {
		return "Overdue"
	}

	if delta >= 24*time.Hour {
		days := int(delta.Hours() / 24)
		return fmt.Sprintf("In %d day%s", days, plural(days))
	}
	if delta >= time.Hour {
		hours := int(delta.Hours())
		return fmt.Sprintf("In %d hour%s", hours, plural(hours))
	}
	minutes := int(delta.Minutes())
	return fmt.Sprintf("In %d minute%s", minutes, plural(minutes))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// Note 线索备注，创建后不可修改，仅作者或管理员可删除
type Note struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	LeadID    string             `json:"leadId" bson:"leadid"`
	UserID    string             `json:"userId,omitempty" bson:"userid,omitempty"`
	UserName  string             `json:"userName,omitempty" bson:"username,omitempty"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdat"`
}

// Activity 线索活动记录，只追加不修改，UserID 为空表示系统产生
type Activity struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	LeadID       string             `json:"leadId" bson:"leadid"`
	UserID       string             `json:"userId,omitempty" bson:"userid,omitempty"`
	UserName     string             `json:"userName,omitempty" bson:"username,omitempty"`
	ActivityType ActivityType       `json:"activityType" bson:"activitytype"`
	Description  string             `json:"description" bson:"description"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdat"`
}

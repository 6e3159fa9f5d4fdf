package models

// UserRole 用户角色枚举
type UserRole string

const (
	UserRoleSUPER_ADMIN UserRole = "SUPER_ADMIN" // 平台超级管理员（可不属于任何公司）
	UserRoleADMIN       UserRole = "ADMIN"       // 公司管理员
	UserRoleAGENT       UserRole = "AGENT"       // 跟进线索的坐席
)

// LeadStatus 线索状态枚举
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusDeleted   LeadStatus = "deleted" // 软删除，行仍保留
)

// LeadStatusLabels 状态展示文案（活动描述中使用，保持英文）
var LeadStatusLabels = map[LeadStatus]string{
	LeadStatusNew:       "New",
	LeadStatusContacted: "Contacted",
	LeadStatusQualified: "Qualified",
	LeadStatusConverted: "Converted",
	LeadStatusWon:       "Won",
	LeadStatusLost:      "Lost",
	LeadStatusDeleted:   "Deleted",
}

// StatusLabel 获取状态展示文案，未知状态原样返回
func StatusLabel(status LeadStatus) string {
	if label, ok := LeadStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

// IsValidLeadStatus 校验状态值是否合法
func IsValidLeadStatus(status LeadStatus) bool {
	_, ok := LeadStatusLabels[status]
	return ok
}

// LeadPriority 线索优先级枚举
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
)

// IsValidLeadPriority 校验优先级值是否合法
func IsValidLeadPriority(priority LeadPriority) bool {
	switch priority {
	case LeadPriorityLow, LeadPriorityMedium, LeadPriorityHigh:
		return true
	}
	return false
}

// StageType 阶段类型枚举
type StageType string

const (
	StageTypeLead    StageType = "lead"
	StageTypePatient StageType = "patient"
	StageTypeClosed  StageType = "closed"
)

// ActivityType 活动类型枚举
type ActivityType string

const (
	ActivityTypeCreated          ActivityType = "created"
	ActivityTypeAssigned         ActivityType = "assigned"
	ActivityTypeStatusChanged    ActivityType = "status_changed"
	ActivityTypeStageChanged     ActivityType = "stage_changed"
	ActivityTypeNoteAdded        ActivityType = "note_added"
	ActivityTypeContacted        ActivityType = "contacted"
	ActivityTypeMessageSent      ActivityType = "message_sent"
	ActivityTypeCallLogged       ActivityType = "call_logged"
	ActivityTypeFieldUpdated     ActivityType = "field_updated"
	ActivityTypeFollowUpReminder ActivityType = "follow_up_reminder"
)

// MessageDirection 消息方向
type MessageDirection string

const (
	MessageDirectionIncoming MessageDirection = "incoming"
	MessageDirectionOutgoing MessageDirection = "outgoing"
)

// MessageStatus 消息投递状态
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// ChannelType 会话通道类型
type ChannelType string

const (
	ChannelTypeWhatsApp ChannelType = "whatsapp"
	ChannelTypeSMS      ChannelType = "sms"
	ChannelTypeEmail    ChannelType = "email"
)

// 各种请求结构
type (
	// LoginRequest 登录请求
	LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	// CreateUserRequest 创建用户请求
	CreateUserRequest struct {
		Email     string   `json:"email" binding:"required,email"`
		Password  string   `json:"password" binding:"required,min=6"`
		FirstName string   `json:"firstName" binding:"required"`
		LastName  string   `json:"lastName"`
		Phone     string   `json:"phone"`
		Role      UserRole `json:"role" binding:"required,oneof=ADMIN AGENT"`
	}

	// UpdateUserRequest 更新用户请求
	UpdateUserRequest struct {
		Email     string   `json:"email" binding:"omitempty,email"`
		Password  string   `json:"password" binding:"omitempty,min=6"`
		FirstName string   `json:"firstName"`
		LastName  string   `json:"lastName"`
		Phone     string   `json:"phone"`
		Role      UserRole `json:"role" binding:"omitempty,oneof=ADMIN AGENT"`
		IsActive  *bool    `json:"isActive"`
	}

	// LeadCreateRequest 创建线索请求
	LeadCreateRequest struct {
		Name         string       `json:"name" binding:"required"`
		Phone        string       `json:"phone" binding:"required"`
		Email        string       `json:"email" binding:"omitempty,email"`
		SourceID     string       `json:"sourceId" binding:"required"`
		StageID      string       `json:"stageId" binding:"required"`
		Priority     LeadPriority `json:"priority"`
		AssignedTo   string       `json:"assignedTo"`
		NextFollowUp string       `json:"nextFollowUp"` // RFC3339，必须是将来时间
		Notes        string       `json:"notes"`
		Tags         []string     `json:"tags"`
	}

	// LeadUpdateRequest 更新线索请求
	LeadUpdateRequest struct {
		Name         string       `json:"name"`
		Email        string       `json:"email" binding:"omitempty,email"`
		SourceID     string       `json:"sourceId"`
		Priority     LeadPriority `json:"priority"`
		NextFollowUp string       `json:"nextFollowUp"`
		Notes        string       `json:"notes"`
		Tags         []string     `json:"tags"`
	}

	// AssignLeadRequest 分配线索请求
	AssignLeadRequest struct {
		UserID string `json:"userId" binding:"required"`
	}

	// ChangeStatusRequest 修改线索状态请求
	ChangeStatusRequest struct {
		Status LeadStatus `json:"status" binding:"required"`
	}

	// ChangeStageRequest 修改线索阶段请求
	ChangeStageRequest struct {
		StageID string `json:"stageId" binding:"required"`
	}

	// NoteCreateRequest 添加备注请求
	NoteCreateRequest struct {
		Content string `json:"content" binding:"required"`
	}

	// BulkLeadRequest 批量操作请求
	BulkLeadRequest struct {
		LeadIDs  []string     `json:"leadIds" binding:"required,min=1"`
		Status   LeadStatus   `json:"status"`
		Priority LeadPriority `json:"priority"`
		UserID   string       `json:"userId"`
	}

	// SendMessageRequest 发送消息请求
	SendMessageRequest struct {
		LeadID    string `json:"leadId" binding:"required"`
		Message   string `json:"message"`
		MediaURL  string `json:"mediaUrl"`
		MediaType string `json:"mediaType"`
	}

	// WebhookPayload 入站Webhook负载
	WebhookPayload struct {
		Phone     string `json:"phone"`
		Name      string `json:"name"`
		Message   string `json:"message"`
		MessageID string `json:"message_id"`
		MediaURL  string `json:"media_url"`
		MediaType string `json:"media_type"`
	}
)

package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User 用户类型
// 计数器字段只允许线索状态机的副作用修改，外部调用不可直接写
type User struct {
	ID        primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"` // 不返回密码
	FirstName string             `json:"firstName" bson:"firstname"`
	LastName  string             `json:"lastName,omitempty" bson:"lastname,omitempty"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	CompanyID string             `json:"companyId,omitempty" bson:"companyid,omitempty"` // 超级管理员可为空
	Role      UserRole           `json:"role" bson:"role"`
	JobTitle  string             `json:"jobTitle,omitempty" bson:"jobtitle,omitempty"`

	// 业绩累计计数器（单调递增的“到达次数”语义，与看板的实时统计刻意分离）
	TotalLeadsAssigned  int `json:"totalLeadsAssigned" bson:"totalleadsassigned"`
	TotalLeadsConverted int `json:"totalLeadsConverted" bson:"totalleadsconverted"`
	TotalLeadsWon       int `json:"totalLeadsWon" bson:"totalleadswon"`

	LoginCount  int       `json:"loginCount" bson:"logincount"`
	LastLoginIP string    `json:"lastLoginIp,omitempty" bson:"lastloginip,omitempty"`
	IsActive    bool      `json:"isActive" bson:"isactive"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedat"`
}

// FullName 返回用户全名，缺失时退回邮箱
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	}
	return u.Email
}

// Initials 返回头像缩写
func (u *User) Initials() string {
	if u.FirstName != "" && u.LastName != "" {
		return strings.ToUpper(u.FirstName[:1] + u.LastName[:1])
	}
	if u.FirstName != "" {
		return strings.ToUpper(u.FirstName[:1])
	}
	if u.Email != "" {
		return strings.ToUpper(u.Email[:1])
	}
	return "?"
}

// IsAdmin 是否为管理员（超级管理员视同管理员）
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleADMIN || u.Role == UserRoleSUPER_ADMIN
}

// IsAgent 是否为坐席
func (u *User) IsAgent() bool {
	return u.Role == UserRoleAGENT
}

// IsSuperAdmin 是否为平台超级管理员
func (u *User) IsSuperAdmin() bool {
	return u.Role == UserRoleSUPER_ADMIN
}

// ConversionRate 转化率 = 转化数/分配数*100，分配数为0时返回0
func (u *User) ConversionRate() float64 {
	if u.TotalLeadsAssigned == 0 {
		return 0
	}
	return float64(u.TotalLeadsConverted) / float64(u.TotalLeadsAssigned) * 100
}

// WinRate 赢单率 = 赢单数/分配数*100，分配数为0时返回0
func (u *User) WinRate() float64 {
	if u.TotalLeadsAssigned == 0 {
		return 0
	}
	return float64(u.TotalLeadsWon) / float64(u.TotalLeadsAssigned) * 100
}

// PerformanceScore 综合绩效 = 转化率*0.6 + 赢单率*0.4
func (u *User) PerformanceScore() float64 {
	return u.ConversionRate()*0.6 + u.WinRate()*0.4
}

package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/catchycrm/crm_end/config"
	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// 集合名
	CompaniesCollection        = "companies"
	UsersCollection            = "users"
	LeadSourcesCollection      = "leadSources"
	LeadStagesCollection       = "leadStages"
	LeadsCollection            = "leads"
	NotesCollection            = "notes"
	ActivitiesCollection       = "activities"
	WoztellConfigsCollection   = "woztellConfigs"
	MessagesCollection         = "messages"
	ChannelsCollection         = "channels"
	ApiOperationLogsCollection = "apiOperationLogs"
)

var (
	client *mongo.Client
	db     *mongo.Database
	ctx    = context.Background()
	once   sync.Once
)

// InitMongoDB 初始化MongoDB连接
func InitMongoDB(uri, dbName string) error {
	// 设置连接超时
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 创建客户端
	var err error
	clientOptions := options.Client().ApplyURI(uri)
	client, err = mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return fmt.Errorf("连接MongoDB失败: %w", err)
	}

	// 检查连接
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping MongoDB失败: %w", err)
	}

	// 选择数据库
	db = client.Database(dbName)
	utils.Logger.Info().Str("database", dbName).Msg("已连接到MongoDB")

	return nil
}

// CloseMongoDB 关闭MongoDB连接
func CloseMongoDB() {
	if client != nil {
		if err := client.Disconnect(ctx); err != nil {
			utils.Logger.Error().Err(err).Msg("断开MongoDB连接失败")
			return
		}
		utils.Logger.Info().Msg("已断开MongoDB连接")
	}
}

// WithTransaction 在MongoDB会话事务内执行fn
// 线索状态机要求状态、计数器和活动记录在同一事务中落盘
func WithTransaction(c context.Context, fn func(sc mongo.SessionContext) (interface{}, error)) (interface{}, error) {
	session, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("启动MongoDB会话失败: %w", err)
	}
	defer session.EndSession(c)

	return session.WithTransaction(c, fn)
}

// ExecuteDbOperation 执行数据库操作，提供错误处理和重试机制
func ExecuteDbOperation(operation func() (interface{}, error), retries int) (interface{}, error) {
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err
		utils.Logger.Error().Err(err).Msgf("数据库操作失败，重试 (%d/%d)", i+1, retries)

		// 如果是不可重试的错误，立即返回
		if !isRetryableError(err) {
			break
		}

		// 延迟后重试
		time.Sleep(time.Duration(500*(i+1)) * time.Millisecond)
	}

	return nil, lastErr
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	// MongoDB可重试错误代码
	retryableCodes := map[int]bool{
		6:     true, // HostUnreachable
		7:     true, // HostNotFound
		89:    true, // NetworkTimeout
		91:    true, // ShutdownInProgress
		189:   true, // PrimarySteppedDown
		10107: true, // NotMaster
		13436: true, // NotMasterNoSlaveOk
		11600: true, // InterruptedAtShutdown
		11602: true, // InterruptedDueToReplStateChange
		10058: true, // ConnectionReset
	}

	if cmdErr, ok := err.(mongo.CommandError); ok {
		return retryableCodes[int(cmdErr.Code)]
	}

	// 检查常见网络错误
	return isNetworkError(err)
}

// isNetworkError 检查是否是网络错误
func isNetworkError(err error) bool {
	errMsg := err.Error()
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"no reachable servers",
		"timeout",
		"context deadline exceeded",
		"server selection error",
	}

	for _, ne := range networkErrors {
		if containsIgnoreCase(errMsg, ne) {
			return true
		}
	}

	return false
}

// containsIgnoreCase 判断字符串是否包含子串（忽略大小写）
func containsIgnoreCase(s, substr string) bool {
	s, substr = toLowerCase(s), toLowerCase(substr)
	return s != "" && substr != "" && contains(s, substr)
}

// toLowerCase 将字符串转为小写
func toLowerCase(s string) string {
	result := ""
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			result += string(c + 32)
		} else {
			result += string(c)
		}
	}
	return result
}

// contains 检查字符串是否包含子串
func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// InitializeCollections 初始化数据库集合
func InitializeCollections() error {
	collections := []string{
		CompaniesCollection,
		UsersCollection,
		LeadSourcesCollection,
		LeadStagesCollection,
		LeadsCollection,
		NotesCollection,
		ActivitiesCollection,
		WoztellConfigsCollection,
		MessagesCollection,
		ChannelsCollection,
		ApiOperationLogsCollection,
	}

	for _, collName := range collections {
		// 检查集合是否存在
		collExists, err := CollectionExists(collName)
		if err != nil {
			return fmt.Errorf("检查集合失败: %w", err)
		}

		// 如果不存在则创建
		if !collExists {
			if err := createCollection(collName); err != nil {
				return fmt.Errorf("创建集合失败: %w", err)
			}
			utils.Logger.Info().Str("collection", collName).Msg("创建集合成功")
		} else {
			utils.Logger.Info().Str("collection", collName).Msg("集合已存在")
		}
	}

	return EnsureIndexes()
}

// EnsureIndexes 创建唯一索引和查询索引
func EnsureIndexes() error {
	type indexSpec struct {
		collection string
		model      mongo.IndexModel
	}

	specs := []indexSpec{
		// 同一公司内电话号码唯一
		{LeadsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "companyid", Value: 1}, {Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_company_phone"),
		}},
		// 邮箱全局唯一
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		}},
		// 外部消息ID用于webhook幂等去重，稀疏索引允许出站消息为空
		{MessagesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "woztellmessageid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_woztell_message_id"),
		}},
		// 每个线索每种渠道只有一个会话
		{ChannelsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "leadid", Value: 1}, {Key: "channeltype", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_lead_channel"),
		}},
		// 常用查询索引
		{LeadsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "companyid", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_company_status"),
		}},
		{LeadsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "companyid", Value: 1}, {Key: "assignedto", Value: 1}},
			Options: options.Index().SetName("idx_company_assignee"),
		}},
		{ActivitiesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "leadid", Value: 1}, {Key: "createdat", Value: -1}},
			Options: options.Index().SetName("idx_lead_activities"),
		}},
		{NotesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "leadid", Value: 1}, {Key: "createdat", Value: -1}},
			Options: options.Index().SetName("idx_lead_notes"),
		}},
		{MessagesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "channelid", Value: 1}, {Key: "createdat", Value: -1}},
			Options: options.Index().SetName("idx_channel_messages"),
		}},
	}

	for _, spec := range specs {
		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("创建索引失败 (%s): %w", spec.collection, err)
		}
	}

	utils.Logger.Info().Msg("索引初始化完成")
	return nil
}

// CollectionExists 检查集合是否存在
func CollectionExists(collName string) (bool, error) {
	collections, err := db.ListCollectionNames(ctx, bson.M{"name": collName})
	if err != nil {
		return false, err
	}

	for _, name := range collections {
		if name == collName {
			return true, nil
		}
	}

	return false, nil
}

// createCollection 创建集合
func createCollection(collName string) error {
	return db.CreateCollection(ctx, collName)
}

// InitializeAdminAccount 初始化管理员账户
func InitializeAdminAccount() error {
	// 检查是否已存在超级管理员
	usersCollection := db.Collection(UsersCollection)

	count, err := usersCollection.CountDocuments(ctx, bson.M{"role": models.UserRoleSUPER_ADMIN})
	if err != nil {
		return fmt.Errorf("检查管理员账户失败: %w", err)
	}

	// 如果已存在，则不创建
	if count > 0 {
		utils.Logger.Info().Msg("超级管理员账户已存在，跳过创建")
		return nil
	}

	// 创建默认管理员
	adminUser := models.User{
		Email:     "admin@catchycrm.com",
		Password:  utils.HashPassword("admin123"),
		FirstName: "Admin",
		Role:      models.UserRoleSUPER_ADMIN,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err = usersCollection.InsertOne(ctx, adminUser)
	if err != nil {
		return fmt.Errorf("创建管理员账户失败: %w", err)
	}

	utils.Logger.Info().Msg("已创建默认超级管理员账户")
	return nil
}

// GetDatabaseStatus 获取数据库状态
func GetDatabaseStatus() (map[string]interface{}, error) {
	collections := []string{
		CompaniesCollection,
		UsersCollection,
		LeadSourcesCollection,
		LeadStagesCollection,
		LeadsCollection,
		NotesCollection,
		ActivitiesCollection,
		WoztellConfigsCollection,
		MessagesCollection,
		ChannelsCollection,
		ApiOperationLogsCollection,
	}

	result := make(map[string]interface{})

	for _, collName := range collections {
		coll := db.Collection(collName)
		count, err := coll.CountDocuments(ctx, bson.M{})
		if err != nil {
			utils.Logger.Error().Err(err).Str("collection", collName).Msg("获取集合计数失败")
			result[collName] = map[string]interface{}{
				"count": 0,
				"error": err.Error(),
			}
		} else {
			result[collName] = map[string]interface{}{
				"count": count,
			}
		}
	}

	return result, nil
}

// FindUserByID 根据ID查找用户
func FindUserByID(id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("无效的ID格式: %w", err)
	}

	var user models.User
	err = db.Collection(UsersCollection).FindOne(ctx, bson.M{"_id": objID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("用户不存在")
		}
		return nil, err
	}

	return &user, nil
}

// GetDB 返回MongoDB数据库实例
func GetDB() *mongo.Database {
	once.Do(func() {
		if db != nil {
			return
		}

		cfg := config.LoadConfig()
		if err := InitMongoDB(cfg.MongoURI, cfg.MongoDB); err != nil {
			utils.Logger.Fatal().Err(err).Msg("MongoDB连接失败")
		}
	})

	return db
}

// GetContext 返回MongoDB操作的上下文
func GetContext() context.Context {
	return ctx
}

// Collection 返回指定名称的集合
func Collection(name string) *mongo.Collection {
	return GetDB().Collection(name)
}

package database

import (
	"fmt"
	"video-forge/app/config"
	"video-forge/app/logger"
	"video-forge/app/model"
	"video-forge/app/utils"
)

// InitAdminUser 初始化管理员账户
func InitAdminUser(cfg *config.Config, log *logger.Logger) error {
	// 未配置管理员密码时跳过，历史查询接口将不可用
	if cfg.Server.Username == "" || cfg.Server.Password == "" {
		log.Warnf("配置文件中未设置管理员账户，归档管理接口将无法登录")
		return nil
	}

	var existingAdmin model.User
	result := DB.Where("is_admin = ?", true).First(&existingAdmin)

	if result.Error == nil {
		// 管理员已存在，按配置同步用户名和密码
		needUpdate := false

		if existingAdmin.Username != cfg.Server.Username {
			existingAdmin.Username = cfg.Server.Username
			needUpdate = true
		}

		if !utils.VerifyPassword(cfg.Server.Password, existingAdmin.Password) {
			hashed, err := utils.HashPassword(cfg.Server.Password)
			if err != nil {
				return fmt.Errorf("哈希密码失败: %v", err)
			}
			existingAdmin.Password = hashed
			needUpdate = true
		}

		if needUpdate {
			if err := DB.Save(&existingAdmin).Error; err != nil {
				return fmt.Errorf("更新管理员账户失败: %v", err)
			}
			log.Infof("管理员 '%s' 账户信息已更新", cfg.Server.Username)
		}
		return nil
	}

	// 不存在管理员用户，创建新的管理员用户
	hashedPassword, err := utils.HashPassword(cfg.Server.Password)
	if err != nil {
		return fmt.Errorf("哈希密码失败: %v", err)
	}

	adminUser := model.User{
		Username: cfg.Server.Username,
		Password: hashedPassword,
		IsActive: true,
		IsAdmin:  true,
	}

	if err := DB.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("创建管理员账户失败: %v", err)
	}

	log.Infof("管理员账户 '%s' 创建成功", cfg.Server.Username)
	return nil
}

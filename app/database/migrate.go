package database

import "video-forge/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.RenderRecord{},
	)
}

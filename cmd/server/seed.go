package main

import (
	"github.com/permbase/internal/model"
	"github.com/permbase/pkg/logger"
	"github.com/permbase/pkg/utils"
	"gorm.io/gorm"
)

// protectedRoleSeeds 受保护角色的展示名，与保护名称集合一一对应
var protectedRoleSeeds = map[string]string{
	"SUPER_ADMIN":      "超级管理员",
	"ADMIN":            "管理员",
	"SALES_MANAGER":    "销售经理",
	"SALES_PERSON":     "销售员",
	"FINANCE":          "财务",
	"CUSTOMER_SERVICE": "客服",
	"USER":             "普通用户",
}

// seed 初始化种子数据，可重复执行：已存在的行不再创建
func seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		roleIDs := make(map[string]int64, len(model.ProtectedRoleNames()))

		for _, name := range model.ProtectedRoleNames() {
			var existing model.Role
			err := tx.Where("name = ?", name).First(&existing).Error
			if err == nil {
				roleIDs[name] = existing.ID
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}

			r := model.Role{
				Name:        name,
				DisplayName: protectedRoleSeeds[name],
				IsSystem:    true,
				IsActive:    true,
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
			roleIDs[name] = r.ID
			logger.Infof("种子数据: 创建角色 %s", name)
		}

		var userCount int64
		if err := tx.Model(&model.User{}).Count(&userCount).Error; err != nil {
			return err
		}
		if userCount > 0 {
			return nil
		}

		hash, err := utils.HashPassword("admin123")
		if err != nil {
			return err
		}
		admin := model.User{
			Username: "admin",
			Password: hash,
			Nickname: "系统管理员",
			IsActive: true,
			RoleID:   roleIDs["SUPER_ADMIN"],
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		logger.Info("种子数据: 创建初始管理员 admin（请尽快修改默认密码）")
		return nil
	})
}
